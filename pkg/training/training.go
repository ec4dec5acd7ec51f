package training

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultBaseSteps      = 100
	StepsPerImage         = 100
	DefaultResolution     = 512
	DefaultTrainBatchSize = 1
	DefaultLearningRate   = 1e-6

	Launcher = "accelerate launch train_dreambooth.py"
)

// RecommendedSteps is the rule of thumb used by the notebook: 100 steps per
// image on top of baseSteps.
func RecommendedSteps(numImages, baseSteps int) int {
	return numImages*StepsPerImage + baseSteps
}

type CommandOptions struct {
	ModelName      string
	OutputDir      string
	ConceptsFile   string
	MaxTrainSteps  int
	SamplePrompt   string
	Resolution     int
	TrainBatchSize int
	LearningRate   float64
}

func (o CommandOptions) withDefaults() CommandOptions {
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}
	if o.TrainBatchSize == 0 {
		o.TrainBatchSize = DefaultTrainBatchSize
	}
	if o.LearningRate == 0 {
		o.LearningRate = DefaultLearningRate
	}
	return o
}

// FormatLearningRate renders rates the way the launcher expects them, 1e-06
// rather than 0.000001.
func FormatLearningRate(lr float64) string {
	return strconv.FormatFloat(lr, 'g', -1, 64)
}

// BuildCommand renders the launch command. Values are substituted as given,
// nothing is escaped and nothing is executed.
func BuildCommand(opts CommandOptions) string {
	o := opts.withDefaults()

	lines := []string{
		Launcher,
		"  --pretrained_model_name_or_path=" + o.ModelName,
		`  --pretrained_vae_name_or_path="stabilityai/sd-vae-ft-mse"`,
		"  --output_dir=" + o.OutputDir,
		`  --revision="fp16"`,
		"  --with_prior_preservation --prior_loss_weight=1.0",
		"  --seed=1337",
		"  --resolution=" + strconv.Itoa(o.Resolution),
		"  --train_batch_size=" + strconv.Itoa(o.TrainBatchSize),
		"  --train_text_encoder",
		`  --mixed_precision="fp16"`,
		"  --use_8bit_adam",
		"  --gradient_accumulation_steps=1",
		"  --learning_rate=" + FormatLearningRate(o.LearningRate),
		`  --lr_scheduler="constant"`,
		"  --lr_warmup_steps=0",
		"  --num_class_images=50",
		"  --sample_batch_size=4",
		"  --max_train_steps=" + strconv.Itoa(o.MaxTrainSteps),
		"  --save_interval=10000",
		fmt.Sprintf(`  --save_sample_prompt="%s"`, o.SamplePrompt),
		fmt.Sprintf(`  --concepts_list="%s"`, o.ConceptsFile),
	}

	return strings.TrimSpace(strings.Join(lines, " \\\n"))
}
