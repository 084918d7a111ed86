package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tturner/smiteclick/internal/store"
)

// ReadLogsCSV reads a file written by WriteCSV. Extra columns are ignored.
func ReadLogsCSV(path string) ([]store.LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log CSV: %w", err)
	}
	defer file.Close()
	return ParseLogsCSV(file)
}

// ParseLogsCSV decodes session logs from r.
func ParseLogsCSV(r io.Reader) ([]store.LogEntry, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	for _, col := range []string{"start_time", "end_time", "duration_seconds", "total_clicks"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("CSV missing required column: %s", col)
		}
	}

	var logs []store.LogEntry
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}

		var e store.LogEntry
		if i, ok := colIndex["id"]; ok && record[i] != "" {
			if e.ID, err = strconv.ParseInt(record[i], 10, 64); err != nil {
				return nil, fmt.Errorf("line %d: id: %w", line, err)
			}
		}
		if e.StartTime, err = time.Parse(time.RFC3339Nano, record[colIndex["start_time"]]); err != nil {
			return nil, fmt.Errorf("line %d: start_time: %w", line, err)
		}
		if e.EndTime, err = time.Parse(time.RFC3339Nano, record[colIndex["end_time"]]); err != nil {
			return nil, fmt.Errorf("line %d: end_time: %w", line, err)
		}
		if e.DurationSeconds, err = strconv.ParseFloat(record[colIndex["duration_seconds"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: duration_seconds: %w", line, err)
		}
		if e.ClickCount, err = strconv.ParseInt(record[colIndex["total_clicks"]], 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: total_clicks: %w", line, err)
		}
		logs = append(logs, e)
	}
	return logs, nil
}
