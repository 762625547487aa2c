package objectstore

import (
	"bytes"
	"fmt"
	"strings"

	"candlefuse/internal/market"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type fusedParquetRecord struct {
	Coin         string  `parquet:"name=coin, type=BYTE_ARRAY, convertedtype=UTF8"`
	Bar          string  `parquet:"name=bar, type=BYTE_ARRAY, convertedtype=UTF8"`
	Provider     string  `parquet:"name=provider, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp    int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Open         float64 `parquet:"name=open, type=DOUBLE"`
	High         float64 `parquet:"name=high, type=DOUBLE"`
	Low          float64 `parquet:"name=low, type=DOUBLE"`
	Close        float64 `parquet:"name=close, type=DOUBLE"`
	Volume       float64 `parquet:"name=volume, type=DOUBLE"`
	FundingRate  float64 `parquet:"name=funding_rate, type=DOUBLE"`
	OpenInterest float64 `parquet:"name=open_interest, type=DOUBLE"`
}

// memFile is a write-only in-memory parquet target.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// EncodeDataset renders a dataset as a single parquet file.
func EncodeDataset(ds market.FusedDataset, compression string) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(fusedParquetRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}

	switch strings.ToLower(compression) {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, r := range ds.Rows {
		rec := fusedParquetRecord{
			Coin:         ds.Asset.Coin,
			Bar:          ds.Bar.Name,
			Provider:     ds.Provider,
			Timestamp:    r.Timestamp.UnixMilli(),
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			Volume:       r.Volume,
			FundingRate:  r.FundingRate,
			OpenInterest: r.OpenInterest,
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mem.Bytes(), nil
}
