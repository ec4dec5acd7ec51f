package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samogod/dreamprep/pkg/concept"
	"github.com/samogod/dreamprep/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.BaseDir = filepath.Join(dir, "data")
	cfg.Data.ConceptsFile = filepath.Join(dir, "concepts_list.json")
	cfg.Training.ModelName = "test/model"

	path := filepath.Join(dir, "dreamprep.yaml")
	require.NoError(t, config.Save(cfg, path))
	return path, cfg
}

func resetGlobalFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		silent = false
		verbose = false
		Verbose = false
	})
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stderr
	os.Stderr = w
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() {
		os.Stderr = orig
	}()
	fn()
	w.Close()
	return <-done
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestStepsCommand(t *testing.T) {
	assert.Equal(t, "700\n", execute(t, "steps", "6", "--base", "100"))
	assert.Equal(t, "700\n", execute(t, "steps", "5", "--base", "200"))
}

func TestConceptsCreateCommand_Stdout(t *testing.T) {
	path, cfg := writeTestConfig(t)

	out := execute(t, "-c", path, "concepts", "create", "-i", "testuser", "-k", "person", "--out=-", "--mkdirs=false")

	var concepts []concept.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &concepts))
	require.Len(t, concepts, 1)
	assert.Equal(t, cfg.Data.BaseDir+"/testuser", concepts[0].InstanceDataDir)
	assert.NoDirExists(t, concepts[0].InstanceDataDir)
}

func TestConceptsCreateCommand_FileAndDirs(t *testing.T) {
	path, cfg := writeTestConfig(t)

	execute(t, "-c", path, "concepts", "create", "-i", "nitsuah", "-k", "man", "--out=", "--mkdirs")

	loaded, err := concept.Load(cfg.Data.ConceptsFile)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "photo of nitsuah man", loaded[0].InstancePrompt)
	assert.DirExists(t, loaded[0].InstanceDataDir)
}

func TestCommandCommand(t *testing.T) {
	path, cfg := writeTestConfig(t)

	out := execute(t, "-c", path, "command", "--output-dir", "/weights", "--steps", "800", "--prompt", "photo of x y")

	assert.True(t, strings.HasPrefix(out, "accelerate launch train_dreambooth.py"))
	assert.Contains(t, out, "--pretrained_model_name_or_path=test/model")
	assert.Contains(t, out, "--output_dir=/weights")
	assert.Contains(t, out, "--max_train_steps=800")
	assert.Contains(t, out, `--save_sample_prompt="photo of x y"`)
	assert.Contains(t, out, `--concepts_list="`+cfg.Data.ConceptsFile+`"`)
}

func TestWriteCommand_File(t *testing.T) {
	target := filepath.Join(t.TempDir(), "train.sh")
	require.NoError(t, writeCommand(rootCmd, "accelerate launch x", target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "accelerate launch x\n", string(data))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("12345678-aaaa-bbbb"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestPrepareCommand_WritesLaunchFile(t *testing.T) {
	resetGlobalFlags(t)
	path, cfg := writeTestConfig(t)
	target := filepath.Join(t.TempDir(), "train.sh")

	writeImages(t, filepath.Join(cfg.Data.BaseDir, "nitsuah"), "a.jpg", "b.jpg", "c.png", "d.jpeg")

	execute(t, "-c", path, "--silent=false", "prepare", "-i", "nitsuah", "-k", "man", "-o", target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "accelerate launch train_dreambooth.py"))
	assert.Contains(t, string(data), "--max_train_steps=")
	assert.FileExists(t, cfg.Data.ConceptsFile)

	loaded, err := concept.Load(cfg.Data.ConceptsFile)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "photo of nitsuah man", loaded[0].InstancePrompt)
}

func TestPrepareCommand_SilentKeepsWarnings(t *testing.T) {
	resetGlobalFlags(t)
	path, _ := writeTestConfig(t)

	var out string
	stderr := captureStderr(t, func() {
		out = execute(t, "-c", path, "--silent", "prepare", "-i", "emptyuser", "-k", "person", "--output=")
	})

	assert.True(t, strings.HasPrefix(out, "accelerate launch train_dreambooth.py"))
	assert.Contains(t, stderr, "[WARN] Too few images. Found 0, recommended minimum is 3")
	assert.NotContains(t, stderr, "[INF]")
	assert.NotContains(t, out, "[WARN]")
}

func TestImagesCommand_List(t *testing.T) {
	resetGlobalFlags(t)
	path, cfg := writeTestConfig(t)
	dir := filepath.Join(cfg.Data.BaseDir, "subject")
	writeImages(t, dir, "b.jpg", "a.jpg", "c.jpg", "d.jpg", "notes.txt")

	out := execute(t, "-c", path, "images", dir, "--list")
	t.Cleanup(func() { imagesList = false })

	assert.Contains(t, out, "a.jpg\nb.jpg\nc.jpg\nd.jpg\n")
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, "recommended steps: 500")
}

func TestConceptsCheckCommand(t *testing.T) {
	resetGlobalFlags(t)
	path, _ := writeTestConfig(t)
	file := filepath.Join(t.TempDir(), "concepts.json")

	execute(t, "-c", path, "concepts", "create", "-i", "nitsuah", "-k", "man", "--out="+file, "--mkdirs=false")
	out := execute(t, "-c", path, "concepts", "check", file)

	assert.Contains(t, out, "[OK] concept 0")
	assert.NotContains(t, out, "[ERR]")
}

func TestConfigInitCommand(t *testing.T) {
	resetGlobalFlags(t)
	path := filepath.Join(t.TempDir(), "nested", "dreamprep.yaml")

	execute(t, "config", "init", path, "--force=false")

	m := config.NewManager(path)
	require.NoError(t, m.LoadConfig())
	assert.Equal(t, config.Default().Training.ModelName, m.GetConfig().Training.ModelName)
	assert.Equal(t, config.Default().Images.Min, m.GetConfig().Images.Min)
}

func TestVerboseDebugGoesToStderr(t *testing.T) {
	resetGlobalFlags(t)
	path, _ := writeTestConfig(t)

	var out string
	stderr := captureStderr(t, func() {
		out = execute(t, "-c", path, "-v", "concepts", "create", "-i", "testuser", "-k", "person", "--out=-", "--mkdirs=false")
	})

	assert.Contains(t, stderr, "[DBG] loading config from "+path)
	assert.NotContains(t, out, "[DBG]")

	var concepts []concept.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &concepts))
	assert.Len(t, concepts, 1)
}

func TestTrackCommand(t *testing.T) {
	resetGlobalFlags(t)
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.BaseDir = filepath.Join(dir, "data")
	cfg.Data.ConceptsFile = filepath.Join(dir, "concepts_list.json")
	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = filepath.Join(dir, "runs.db")
	path := filepath.Join(dir, "dreamprep.yaml")
	require.NoError(t, config.Save(cfg, path))

	writeImages(t, filepath.Join(cfg.Data.BaseDir, "nitsuah"), "a.jpg", "b.jpg", "c.jpg")
	execute(t, "-c", path, "--silent", "prepare", "-i", "nitsuah", "-k", "man", "--output=")

	out := execute(t, "-c", path, "track", "nitsuah", "--commands")
	t.Cleanup(func() { trackCommands = false })

	assert.Contains(t, out, "INSTANCE")
	assert.Contains(t, out, "nitsuah")
	assert.Contains(t, out, "400")
	assert.Contains(t, out, "accelerate launch train_dreambooth.py")
}
