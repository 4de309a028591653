package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.yml|dir>...\n", os.Args[0])
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run validates every file or directory argument and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	files, err := collect(args)
	if err != nil {
		fmt.Fprintf(stderr, "Validation failed: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, "No scenario files found")
		return 1
	}

	v := &ScenarioValidator{bases: make(map[string]*scenario.Scenario)}
	failed := 0
	// Base documents first so overlays can be checked against them.
	slices.SortStableFunc(files, func(a, b string) int {
		return boolCmp(isOverlay(a), isOverlay(b))
	})
	for _, f := range files {
		if err := v.validateFile(f, stdout); err != nil {
			fmt.Fprintf(stderr, "Validation failed: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d scenario files failed validation\n", failed, len(files))
		return 1
	}
	fmt.Fprintf(stdout, "All %d scenario files are valid!\n", len(files))
	return 0
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, pattern := range []string{"*.yml", "*.yaml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	slices.Sort(files)
	return files, nil
}

type ScenarioValidator struct {
	bases map[string]*scenario.Scenario
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isOverlay(filename string) bool {
	return strings.Contains(stem(filename), ".")
}

func (v *ScenarioValidator) validateFile(filename string, out io.Writer) error {
	fmt.Fprintf(out, "Validating %s...\n", filename)

	ext := filepath.Ext(filename)
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("scenario file must have .yml extension: %s", filepath.Base(filename))
	}
	slug, locale, overlay := strings.Cut(stem(filename), ".")
	if !isValidScenarioFilename(slug) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.yml, not my-scenario.yml or MyScenario.yml)", filepath.Base(filename))
	}
	if overlay && !validLocaleRegex.MatchString(locale) {
		return fmt.Errorf("overlay locale '%s' in %s must be a lowercase language code", locale, filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var s scenario.Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("file %s is empty", filename)
		}
		return fmt.Errorf("file %s failed strict YAML unmarshaling: %w", filename, err)
	}

	var problems []string
	if overlay {
		base, ok := v.bases[slug]
		if !ok {
			return fmt.Errorf("overlay %s has no base scenario %s.yml", filepath.Base(filename), slug)
		}
		problems = scenario.ValidateOverlay(base, &s)
	} else {
		if s.Slug != "" && s.Slug != slug {
			problems = append(problems, fmt.Sprintf("slug %q does not match file name %q", s.Slug, slug))
		}
		if s.Slug == "" {
			s.Slug = slug
		}
		problems = append(problems, scenario.Validate(&s)...)
		v.bases[slug] = &s
	}

	if len(problems) > 0 {
		lines := make([]string, len(problems))
		for i, p := range problems {
			lines[i] = "  - " + p
		}
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(lines, "\n"))
	}
	return nil
}

var validLocaleRegex = regexp.MustCompile(`^[a-z]{2,3}$`)

func isValidScenarioFilename(name string) bool {
	return scenario.IsValidID(name)
}
