package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"SlotKV/database"
	"SlotKV/storage"
	"SlotKV/storage/engine"
)

type kind struct {
	set func(e *engine.Engine, key, raw string) error
	get func(e *engine.Engine, key string) (any, error)
}

func scalarKind[T storage.Scalar](parse func(string) (T, error)) kind {
	return kind{
		set: func(e *engine.Engine, key, raw string) error {
			v, err := parse(raw)
			if err != nil {
				return err
			}
			return engine.PutScalar(e, key, v)
		},
		get: func(e *engine.Engine, key string) (any, error) {
			return engine.GetScalar[T](e, key)
		},
	}
}

func parseInt[T int16 | int32 | int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	}
}

func parseUint[T uint8 | uint16 | uint32 | uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

func parseFloat[T float32 | float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	}
}

var kinds = map[string]kind{
	"int16":   scalarKind(parseInt[int16](16)),
	"int32":   scalarKind(parseInt[int32](32)),
	"int64":   scalarKind(parseInt[int64](64)),
	"byte":    scalarKind(parseUint[uint8](8)),
	"uint16":  scalarKind(parseUint[uint16](16)),
	"uint32":  scalarKind(parseUint[uint32](32)),
	"uint64":  scalarKind(parseUint[uint64](64)),
	"float32": scalarKind(parseFloat[float32](32)),
	"float64": scalarKind(parseFloat[float64](64)),
	"bool":    scalarKind(strconv.ParseBool),
	"string": {
		set: func(e *engine.Engine, key, raw string) error { return e.PutString(key, raw) },
		get: func(e *engine.Engine, key string) (any, error) { return e.GetString(key) },
	},
}

func kindList() string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func lookupKind(name string) (kind, error) {
	k, ok := kinds[strings.ToLower(name)]
	if !ok {
		return kind{}, fmt.Errorf("unknown kind %q (want one of %s)", name, kindList())
	}
	return k, nil
}

type statReport struct {
	DataFile      string `yaml:"data_file"`
	IndexFile     string `yaml:"index_file"`
	Keys          int    `yaml:"keys"`
	DataFileSize  int64  `yaml:"data_file_size"`
	IndexFileSize int64  `yaml:"index_file_size"`
}

func wantArgs(args []string, n int, form string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", form)
	}
	return nil
}

// execute 执行一条子命令，结果写到 w
func execute(s *database.Store, args []string, w io.Writer) error {
	e := s.Engine()
	cmd, args := args[0], args[1:]

	switch cmd {
	case "set":
		if err := wantArgs(args, 3, "set <key> <kind> <value>"); err != nil {
			return err
		}
		k, err := lookupKind(args[1])
		if err != nil {
			return err
		}
		if err := k.set(e, args[0], args[2]); err != nil {
			return fmt.Errorf("set %s: %w", args[0], err)
		}
		return nil

	case "get":
		if len(args) != 1 && len(args) != 2 {
			return errors.New("usage: get <key> [kind]")
		}
		var v any
		var err error
		if len(args) == 2 {
			k, kerr := lookupKind(args[1])
			if kerr != nil {
				return kerr
			}
			v, err = k.get(e, args[0])
		} else {
			var tag storage.TypeTag
			tag, v, err = e.GetRaw(args[0])
			if err == nil && tag == storage.Custom {
				v = fmt.Sprintf("%x", v)
			}
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", args[0], err)
		}
		_, err = fmt.Fprintln(w, v)
		return err

	case "has":
		if err := wantArgs(args, 1, "has <key>"); err != nil {
			return err
		}
		ok, err := e.Contains(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, ok)
		return err

	case "rm":
		if err := wantArgs(args, 1, "rm <key>"); err != nil {
			return err
		}
		ok, err := e.Remove(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, ok)
		return err

	case "clear":
		if err := wantArgs(args, 0, "clear"); err != nil {
			return err
		}
		return e.Clear()

	case "stat":
		if err := wantArgs(args, 0, "stat"); err != nil {
			return err
		}
		// 先触发一次加载，Stats 只在加载后才有文件信息
		if _, err := e.Contains(""); err != nil {
			return err
		}
		st := s.Stats()
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(statReport{
			DataFile:      e.DataPath(),
			IndexFile:     e.IndexPath(),
			Keys:          st.Keys,
			DataFileSize:  st.DataFileSize,
			IndexFileSize: st.IndexFileSize,
		})
		return errors.Join(err, enc.Close())

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
