package concept

const DefaultBaseDataDir = "/content/data"

const (
	FieldInstancePrompt  = "instance_prompt"
	FieldClassPrompt     = "class_prompt"
	FieldInstanceDataDir = "instance_data_dir"
	FieldClassDataDir    = "class_data_dir"
)

var RequiredFields = []string{
	FieldInstancePrompt,
	FieldClassPrompt,
	FieldInstanceDataDir,
	FieldClassDataDir,
}

var DebugLog func(string, ...interface{})

// Concept is one entry of the concepts list consumed by train_dreambooth.py.
type Concept struct {
	InstancePrompt  string `json:"instance_prompt" yaml:"instance_prompt"`
	ClassPrompt     string `json:"class_prompt" yaml:"class_prompt"`
	InstanceDataDir string `json:"instance_data_dir" yaml:"instance_data_dir"`
	ClassDataDir    string `json:"class_data_dir" yaml:"class_data_dir"`
}

// NewConceptsList builds the single-entry concepts list for an instance
// token and its class. An empty baseDir falls back to DefaultBaseDataDir.
func NewConceptsList(instance, class, baseDir string) []Concept {
	if baseDir == "" {
		baseDir = DefaultBaseDataDir
	}

	return []Concept{
		{
			InstancePrompt:  "photo of " + instance + " " + class,
			ClassPrompt:     "photo of a " + class,
			InstanceDataDir: baseDir + "/" + instance,
			ClassDataDir:    baseDir + "/" + class,
		},
	}
}

func (c Concept) Fields() map[string]string {
	return map[string]string{
		FieldInstancePrompt:  c.InstancePrompt,
		FieldClassPrompt:     c.ClassPrompt,
		FieldInstanceDataDir: c.InstanceDataDir,
		FieldClassDataDir:    c.ClassDataDir,
	}
}

// ValidateStructure reports whether every required key is present.
// Values are not inspected, an empty string still counts as present.
func ValidateStructure(m map[string]string) bool {
	if len(m) == 0 {
		return false
	}
	return len(MissingFields(m)) == 0
}

func MissingFields(m map[string]string) []string {
	var missing []string
	for _, field := range RequiredFields {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
