package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/envelope/internal/planner"
)

// LoadError reports a configuration file that could not be read or
// flattened.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads path and returns the flattened configuration. A directory is
// loaded as one CUE instance; files are dispatched on extension.
func Load(path string) (planner.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read configuration", Err: err}
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read configuration", Err: err}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported configuration format %q", ext)}
	}
}

// LoadCUEDir builds the CUE package in dir and flattens it.
func LoadCUEDir(dir string) (planner.Config, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Path: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Path: dir, Message: "loading CUE files", Err: inst.Err}
	}

	value := cuecontext.New().BuildInstance(inst)
	return flattenCUE(value, dir)
}

// ParseCUE compiles a single CUE document and flattens it.
func ParseCUE(data []byte, filename string) (planner.Config, error) {
	value := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	return flattenCUE(value, filename)
}

func flattenCUE(value cue.Value, path string) (planner.Config, error) {
	if err := value.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: "building CUE value", Err: err}
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Path: path, Message: "configuration must be concrete", Err: err}
	}

	var doc map[string]any
	if err := value.Decode(&doc); err != nil {
		return nil, &LoadError{Path: path, Message: "decoding CUE value", Err: err}
	}
	return flattenDocument(doc, path)
}

// ParseYAML decodes a YAML mapping and flattens it.
func ParseYAML(data []byte, filename string) (planner.Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: filename, Message: "parsing YAML", Err: err}
	}
	return flattenDocument(doc, filename)
}

func flattenDocument(doc map[string]any, path string) (planner.Config, error) {
	out := planner.Config{}
	if err := Flatten("", doc, out); err != nil {
		return nil, &LoadError{Path: path, Message: "flattening configuration", Err: err}
	}
	return out, nil
}

// Flatten writes v into out under dotted keys rooted at prefix. Keys
// produced twice, for example "a.b" written both nested and literally, are
// an error.
func Flatten(prefix string, v any, out planner.Config) error {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if k == "" {
				return fmt.Errorf("empty key under %q", prefix)
			}
			if err := Flatten(join(prefix, k), x[k], out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			s, err := scalar(item)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", prefix, i, err)
			}
			if strings.Contains(s, ",") {
				return fmt.Errorf("%s[%d]: list items must not contain commas", prefix, i)
			}
			items[i] = s
		}
		return set(out, prefix, strings.Join(items, ","))
	default:
		s, err := scalar(x)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		return set(out, prefix, s)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func set(out planner.Config, key, value string) error {
	if key == "" {
		return fmt.Errorf("configuration root must be a mapping")
	}
	if _, dup := out[key]; dup {
		return fmt.Errorf("key %q is defined more than once", key)
	}
	out[key] = value
	return nil
}

func scalar(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	case map[string]any, []any:
		return "", fmt.Errorf("nested %T is not allowed here", v)
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
