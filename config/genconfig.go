package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Writes YAML for the fields of a config struct, using the default and comment tags.
// Fields tagged required:"false" are marked optional.
type sampleWriter struct {
	indent int
	sb     strings.Builder
}

func (s *sampleWriter) pad() string {
	return strings.Repeat(" ", s.indent*2)
}

func (s *sampleWriter) structFields(t reflect.Type) {
	for _, f := range reflect.VisibleFields(t) {
		s.field(f)
	}
}

func (s *sampleWriter) field(f reflect.StructField) {
	name := f.Tag.Get("yaml")

	switch f.Type.Kind() {
	case reflect.Struct:
		s.sb.WriteString(s.pad() + name + ":\n")
		s.indent++
		s.structFields(f.Type)
		s.indent--

		if s.indent == 0 {
			s.sb.WriteString("\n")
		}
	case reflect.Slice:
		s.sb.WriteString(s.pad() + name + ":")
		s.comment(f)
		s.sb.WriteString("\n")

		def := f.Tag.Get("default")
		if def == "" {
			return
		}

		s.indent++
		for _, v := range strings.Split(def, ",") {
			s.sb.WriteString(s.pad() + "- " + strings.TrimSpace(v) + "\n")
		}
		s.indent--
	default:
		def := f.Tag.Get("default")

		if def != "" {
			s.sb.WriteString(s.pad() + name + ": " + def)
		} else {
			s.sb.WriteString(s.pad() + name + ":")
		}

		s.comment(f)
		s.sb.WriteString("\n")
	}
}

func (s *sampleWriter) comment(f reflect.StructField) {
	comment := f.Tag.Get("comment")
	optional := f.Tag.Get("required") == "false"

	if env := f.Tag.Get("env"); env != "" {
		if comment != "" {
			comment += " "
		}
		comment += "[$" + env + "]"
	}

	switch {
	case comment != "" && optional:
		s.sb.WriteString(" # " + comment + " (optional)")
	case comment != "":
		s.sb.WriteString(" # " + comment)
	case optional:
		s.sb.WriteString(" # (optional)")
	}
}

// GenConfig writes a sample config with every default filled in
func GenConfig(w io.Writer) error {
	s := &sampleWriter{}
	s.structFields(reflect.TypeOf(Config{}))

	_, err := fmt.Fprintln(w, strings.TrimSpace(s.sb.String()))
	return err
}
