// Package archive reads members out of the downloaded price table zip.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrMemberNotFound is returned when no member name ends with the wanted suffix.
var ErrMemberNotFound = errors.New("member not found in archive")

// maxMemberSize bounds a decompressed member. Price tables are tens of MB.
const maxMemberSize = 1 << 30

// Archive is an opened zip held in memory.
type Archive struct {
	reader *zip.Reader
}

// Open parses a zip archive from data.
func Open(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{reader: reader}, nil
}

// Names lists the member names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.reader.File))
	for i, f := range a.reader.File {
		names[i] = f.Name
	}
	return names
}

// ReadMember returns the content of the first member whose name ends with
// suffix, so "PriceTableNA.lua" also matches "TamrielTradeCentre/PriceTableNA.lua".
func (a *Archive) ReadMember(suffix string) ([]byte, error) {
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, suffix) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if len(content) > maxMemberSize {
			return nil, fmt.Errorf("member %s is larger than %d bytes", f.Name, maxMemberSize)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, suffix)
}
