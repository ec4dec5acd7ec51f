package orchestrator

import (
	"fmt"
	"path"
	"time"

	"github.com/samogod/dreamprep/pkg/concept"
	"github.com/samogod/dreamprep/pkg/config"
	"github.com/samogod/dreamprep/pkg/database"
	"github.com/samogod/dreamprep/pkg/images"
	"github.com/samogod/dreamprep/pkg/training"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Orchestrator struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *database.DB
}

// PrepareOptions overrides configuration values for a single run. Zero
// values fall back to the loaded configuration.
type PrepareOptions struct {
	Instance       string
	Class          string
	BaseDir        string
	ConceptsFile   string
	ModelName      string
	OutputDir      string
	SamplePrompt   string
	MaxTrainSteps  int
	Resolution     int
	TrainBatchSize int
	LearningRate   float64
}

type PrepareResult struct {
	RunID         string
	Concepts      []concept.Concept
	ConceptsFile  string
	Images        images.Result
	MaxTrainSteps int
	Command       string
	Duration      time.Duration
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&customFormatter{})
	return logger
}

func NewOrchestrator(configPath string) (*Orchestrator, error) {
	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	o, err := New(configManager.GetConfig(), NewLogger())
	if err != nil {
		return nil, err
	}
	o.configManager = configManager

	return o, nil
}

// New builds an orchestrator around an already loaded configuration.
// A ledger that fails to open is logged and left disabled.
func New(cfg *config.Config, logger *logrus.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		logger = NewLogger()
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Warnf("Run ledger initialization failed: %v", err)
	}

	return &Orchestrator{
		config: cfg,
		logger: logger,
		db:     db,
	}, nil
}

// Prepare builds and saves the concepts list, creates the instance
// directory, checks the images placed there and renders the training
// command. An image count outside the recommended range is reported in
// the result and logged, it does not fail the run.
func (o *Orchestrator) Prepare(opts PrepareOptions) (*PrepareResult, error) {
	startTime := time.Now()

	if opts.Instance == "" || opts.Class == "" {
		return nil, fmt.Errorf("instance and class are required")
	}

	baseDir := firstNonEmpty(opts.BaseDir, o.config.Data.BaseDir)
	conceptsFile := firstNonEmpty(opts.ConceptsFile, o.config.Data.ConceptsFile)

	concepts := concept.NewConceptsList(opts.Instance, opts.Class, baseDir)
	instanceDir := concepts[0].InstanceDataDir

	if DebugLog != nil {
		DebugLog("built concept %q / %q", concepts[0].InstancePrompt, concepts[0].ClassPrompt)
	}

	if err := concept.Save(concepts, conceptsFile); err != nil {
		return nil, err
	}
	o.logger.Infof("Concepts list saved to %s", conceptsFile)

	if err := concept.ProvisionDirectories(concepts); err != nil {
		return nil, err
	}
	o.logger.Infof("Instance directory ready: %s", instanceDir)

	imageResult, err := images.ValidateImageCountWith(instanceDir, o.config.ImagePolicy())
	if err != nil {
		return nil, fmt.Errorf("failed to inventory images: %w", err)
	}
	if imageResult.Valid {
		o.logger.Info(imageResult.Message)
	} else {
		o.logger.Warn(imageResult.Message)
	}

	maxSteps := opts.MaxTrainSteps
	if maxSteps <= 0 {
		maxSteps = training.RecommendedSteps(imageResult.Count, o.config.Training.BaseSteps)
		if DebugLog != nil {
			DebugLog("estimated %d training steps for %d images", maxSteps, imageResult.Count)
		}
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = path.Join(o.config.Training.OutputDir, opts.Instance)
	}

	command := training.BuildCommand(training.CommandOptions{
		ModelName:      firstNonEmpty(opts.ModelName, o.config.Training.ModelName),
		OutputDir:      outputDir,
		ConceptsFile:   conceptsFile,
		MaxTrainSteps:  maxSteps,
		SamplePrompt:   firstNonEmpty(opts.SamplePrompt, concepts[0].InstancePrompt),
		Resolution:     firstPositive(opts.Resolution, o.config.Training.Resolution),
		TrainBatchSize: firstPositive(opts.TrainBatchSize, o.config.Training.TrainBatchSize),
		LearningRate:   firstPositiveFloat(opts.LearningRate, o.config.Training.LearningRate),
	})

	result := &PrepareResult{
		Concepts:      concepts,
		ConceptsFile:  conceptsFile,
		Images:        imageResult,
		MaxTrainSteps: maxSteps,
		Command:       command,
	}

	if o.db != nil && o.db.IsEnabled() {
		rec := &database.RunRecord{
			Instance:      opts.Instance,
			Class:         opts.Class,
			ConceptsFile:  conceptsFile,
			InstanceDir:   instanceDir,
			ImageCount:    imageResult.Count,
			ImagesValid:   imageResult.Valid,
			MaxTrainSteps: maxSteps,
			Command:       command,
		}
		if err := o.db.TrackRun(rec); err != nil {
			o.logger.Warnf("Failed to record run in ledger: %v", err)
		} else {
			result.RunID = rec.ID
		}
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

func (o *Orchestrator) GetConfig() *config.Config {
	return o.config
}

func (o *Orchestrator) GetDB() *database.DB {
	return o.db
}

func (o *Orchestrator) Logger() *logrus.Logger {
	return o.logger
}

func (o *Orchestrator) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
