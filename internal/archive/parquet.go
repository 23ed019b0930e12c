package archive

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

type parquetSample struct {
	Metric            string  `parquet:"metric"`
	Value             float64 `parquet:"value"`
	CollectedAtUnixMs int64   `parquet:"collected_at_unix_ms"`
}

// EncodeSnapshotToParquet serializes one corrected-value snapshot as Parquet
// rows, sorted by metric key for deterministic output.
func EncodeSnapshotToParquet(snapshot map[string]float64, at time.Time) ([]byte, error) {
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}

	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	collectedAt := at.UTC().UnixMilli()
	rows := make([]parquetSample, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, parquetSample{
			Metric:            key,
			Value:             snapshot[key],
			CollectedAtUnixMs: collectedAt,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetSample](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
