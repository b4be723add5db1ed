// Package input loads trace pieces named on the command line as
// path[@core_id] arguments.
package input

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/decode"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/klauspost/compress/zstd"
)

var specPattern = regexp.MustCompile(`^(?P<path>.*)@(?P<core>\d+)$`)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Spec names one input file and the core it was captured from.
type Spec struct {
	Path   string
	CoreID uint32
}

func (s Spec) String() string {
	return fmt.Sprintf("%s@%d", s.Path, s.CoreID)
}

// ParseSpec splits "path@core". Without a core suffix the core is 0.
func ParseSpec(arg string) (Spec, error) {
	m := specPattern.FindStringSubmatch(arg)
	if m == nil {
		if arg == "" {
			return Spec{}, errors.New(errors.ErrCodeValidation, "empty input path")
		}
		return Spec{Path: arg}, nil
	}

	path := m[specPattern.SubexpIndex("path")]
	if path == "" {
		return Spec{}, errors.New(errors.ErrCodeValidation, fmt.Sprintf("missing path in input %q", arg))
	}
	core, err := strconv.ParseUint(m[specPattern.SubexpIndex("core")], 10, 32)
	if err != nil {
		return Spec{}, errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("invalid core id in input %q", arg))
	}
	return Spec{Path: path, CoreID: uint32(core)}, nil
}

// Loader reads and decodes input files. It is not safe for concurrent use.
type Loader struct {
	decoder *decode.Decoder
	zstd    *zstd.Decoder
	// Stdin is read for the path "-".
	Stdin io.Reader
}

// NewLoader creates a Loader decoding through dec.
func NewLoader(dec *decode.Decoder) (*Loader, error) {
	zd, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Loader{decoder: dec, zstd: zd, Stdin: os.Stdin}, nil
}

// Close releases decoder resources.
func (l *Loader) Close() {
	if l.zstd != nil {
		l.zstd.Close()
	}
}

// Read returns the raw content of path, decompressing zstd captures.
func (l *Loader) Read(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(l.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("cannot read input %s", path))
	}

	if strings.HasSuffix(path, ".zst") || bytes.HasPrefix(data, zstdMagic) {
		raw, err := l.zstd.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("zstd decompress %s", path))
		}
		return raw, nil
	}
	return data, nil
}

// Load reads and decodes one input.
func (l *Loader) Load(spec Spec, format trace.Format) (trace.Piece, error) {
	data, err := l.Read(spec.Path)
	if err != nil {
		return trace.Piece{}, err
	}
	p, err := l.decoder.Decode(data, format, spec.CoreID)
	if err != nil {
		if te, ok := errors.As(err); ok {
			te.WithDetail("input", spec.Path)
		}
		return trace.Piece{}, err
	}
	return p, nil
}

// LoadAll parses and loads every argument, stopping at the first failure.
func (l *Loader) LoadAll(args []string, format trace.Format) ([]trace.Piece, error) {
	pieces := make([]trace.Piece, 0, len(args))
	for _, arg := range args {
		spec, err := ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		p, err := l.Load(spec, format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Path, err)
		}
		pieces = append(pieces, p)
	}
	return pieces, nil
}
