package InputParameters

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/notargets/netgenplugin/types"
)

var (
	errUnexpectedEOF  = errors.New("unexpected end of file")
	errSchemaMismatch = errors.New("record does not match its schema")
)

/*
Import reads a parameter record written by Export. Legacy 25 and 26 line
records are migrated to the canonical schema. Any short or malformed input
fails with a *types.FormatError and no record is returned.
*/
func Import(path string) (*NetgenParams, error) {
	p, _, err := ImportVersioned(path)
	return p, err
}

// ImportVersioned is Import, also returning the schema version found on disk
func ImportVersioned(path string) (*NetgenParams, *semver.Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return decode(path, data)
}

func decode(path string, data []byte) (*NetgenParams, *semver.Version, error) {
	lines := splitLines(data)
	sch, err := schemaFor(len(lines))
	if err != nil {
		if len(lines) < len(schemas[0].Fields) {
			f := allFields[len(lines)]
			return nil, nil, newFormatError(path, len(lines)+1, f, errUnexpectedEOF)
		}
		return nil, nil, &types.FormatError{File: path, Err: err}
	}
	var (
		p      = &NetgenParams{Format: Format_Hypothesis}
		legacy = IsLegacy(sch.Version)
	)
	for i, f := range sch.Fields {
		if legacy && f.Kind == kindBool && !isFlag(lines[i]) {
			return nil, nil, newFormatError(path, i+1, f, fmt.Errorf("%w: expected 0 or 1 in a schema %s record, got %q",
				errSchemaMismatch, sch.Version, strings.TrimSpace(lines[i])))
		}
		if err = f.parse(p, lines[i]); err != nil {
			return nil, nil, newFormatError(path, i+1, f, err)
		}
	}
	return p, sch.Version, nil
}

/*
isFlag accepts the exact booleans written by the legacy writers. The schema is
chosen by line count only, so a canonical record that lost a line reads as the
next older schema with shifted fields; nbThreads then lands on has_local_size.
Strict flags catch that shift unless nbThreads itself is 0 or 1, in which case
the misplaced meshsizefilename still fails on the has_maxelementvolume_hyp flag
for any name other than "0" or "1".
*/
func isFlag(token string) bool {
	token = strings.TrimSpace(token)
	return token == "0" || token == "1"
}

func splitLines(data []byte) (lines []string) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == "" {
		return nil
	}
	lines = strings.Split(text, "\n")
	// Trailing blank lines are padding: the last field of every schema is numeric
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return
}

// Export writes p using the canonical schema, one value per line
func Export(path string, p *NetgenParams) error {
	return os.WriteFile(path, Encode(p), 0644)
}

func Encode(p *NetgenParams) []byte {
	var buf bytes.Buffer
	for _, f := range canonicalFields() {
		buf.WriteString(f.format(p))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

/*
Diff reports whether a and b hold the same values for every serialized field.
Provenance fields (Format, Simple) are not part of the record and are ignored.
*/
func Diff(a, b *NetgenParams) bool {
	for _, f := range canonicalFields() {
		if !f.equal(a, b) {
			return false
		}
	}
	return true
}

// DifferingFields names the serialized fields whose values differ
func DifferingFields(a, b *NetgenParams) (names []string) {
	for _, f := range canonicalFields() {
		if !f.equal(a, b) {
			names = append(names, f.Name)
		}
	}
	return
}

// DiffReport renders a line diff of the printed forms of a and b, empty when equal
func DiffReport(a, b *NetgenParams) string {
	var ba, bb bytes.Buffer
	a.Fprint(&ba)
	b.Fprint(&bb)
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(ba.String(), bb.String())
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)

	var sb strings.Builder
	changed := false
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, changed = "- ", true
		case diffmatchpatch.DiffInsert:
			prefix, changed = "+ ", true
		case diffmatchpatch.DiffEqual:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + line)
		}
	}
	if !changed {
		return ""
	}
	return sb.String()
}

// RoundTrip exports p to path, imports it back and checks the result
func RoundTrip(path string, p *NetgenParams) error {
	if err := Export(path, p); err != nil {
		return err
	}
	back, err := Import(path)
	if err != nil {
		return err
	}
	if !Diff(p, back) {
		return fmt.Errorf("round trip through %s changed fields %v", path, DifferingFields(p, back))
	}
	return nil
}
