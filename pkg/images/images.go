package images

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

const (
	DefaultMinImages = 3
	DefaultMaxImages = 10
)

var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

var DebugLog func(string, ...interface{})

// Result is the outcome of checking an instance directory against a Policy.
type Result struct {
	Valid   bool
	Count   int
	Message string
}

type Policy struct {
	Min        int
	Max        int
	Extensions []string
}

func DefaultPolicy() Policy {
	return Policy{
		Min:        DefaultMinImages,
		Max:        DefaultMaxImages,
		Extensions: DefaultExtensions,
	}
}

// ListImages returns the sorted names of the direct entries of dir whose
// name ends with one of extensions, compared case-insensitively. A missing
// directory yields no names and no error.
func ListImages(dir string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if DebugLog != nil {
				DebugLog("image directory %s does not exist yet", dir)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	lowered := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		lowered = append(lowered, strings.ToLower(ext))
	}

	var names []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		for _, ext := range lowered {
			if strings.HasSuffix(name, ext) {
				names = append(names, entry.Name())
				break
			}
		}
	}
	sort.Strings(names)

	return names, nil
}

func CountImages(dir string, extensions ...string) (int, error) {
	names, err := ListImages(dir, extensions...)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// ValidateImageCount checks dir against min and max using the default
// extensions. Both bounds are inclusive.
func ValidateImageCount(dir string, min, max int) (Result, error) {
	return ValidateImageCountWith(dir, Policy{Min: min, Max: max})
}

func ValidateImageCountWith(dir string, policy Policy) (Result, error) {
	count, err := CountImages(dir, policy.Extensions...)
	if err != nil {
		return Result{}, err
	}

	return Classify(count, policy.Min, policy.Max), nil
}

func Classify(count, min, max int) Result {
	switch {
	case count < min:
		return Result{
			Valid:   false,
			Count:   count,
			Message: fmt.Sprintf("Too few images. Found %d, recommended minimum is %d", count, min),
		}
	case count > max:
		return Result{
			Valid:   false,
			Count:   count,
			Message: fmt.Sprintf("Too many images. Found %d, recommended maximum is %d", count, max),
		}
	default:
		return Result{
			Valid:   true,
			Count:   count,
			Message: fmt.Sprintf("Image count is optimal: %d images", count),
		}
	}
}
