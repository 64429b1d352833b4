package extract

import (
	"context"
	"os"
)

// LegacyOffice extracts text from pre-2007 Office files with the catdoc
// family of converters. A converter that cannot be located makes the
// extractor decline.
type LegacyOffice struct {
	conv   *Converters
	binary string
	args   []string
}

// NewLegacyOffice returns an extractor running binary with args before the
// file name, e.g. NewLegacyOffice(conv, "catdoc", "-a").
func NewLegacyOffice(conv *Converters, binary string, args ...string) *LegacyOffice {
	return &LegacyOffice{conv: conv, binary: binary, args: args}
}

// Extract implements Func.
func (l *LegacyOffice) Extract(ctx context.Context, filename string) (string, error) {
	if l.conv == nil {
		return "", nil
	}
	if _, err := os.Stat(filename); err != nil {
		return "", err
	}
	bin, ok := l.conv.Locate(l.binary)
	if !ok {
		return "", nil
	}
	args := append(append([]string{}, l.args...), filename)
	return l.conv.Run(ctx, bin, args...)
}
