package datacenter

import (
	"encoding/json"
	"io"

	"github.com/pierrec/lz4/v4"
	"google.golang.org/grpc/encoding"
)

const (
	codecName      = "json"
	compressorName = "lz4"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
	encoding.RegisterCompressor(lz4Compressor{})
}

// jsonCodec carries the plain Go message types of the datacenter service.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

type lz4Compressor struct{}

func (lz4Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

func (lz4Compressor) Name() string {
	return compressorName
}
