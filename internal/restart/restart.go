// Package restart implements the per-E2E-destination-target Restart
// Manifest (§4.L): a textual, line-oriented, fsync'd checkpoint file that
// lets a destination target resume an interrupted transfer.
package restart

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Flag is one of the manifest's boolean status markers.
type Flag string

const (
	FlagIsSource            Flag = "ISSOURCE"
	FlagResumeCopy          Flag = "RESUME_COPY"
	FlagSuccessfulCompletion Flag = "SUCCESSFUL_COMPLETION"
)

// Record is one manifest commit: the highest contiguous op the
// destination has durably written.
type Record struct {
	LastCommittedOp           int64
	LastCommittedByteLocation int64
	LastCommittedLength       int64
	SourceHost                string
	DestinationHost           string
	SourcePath                string
	DestinationPath           string
	Flags                     []Flag
}

// Manifest is one open restart file. Exactly one Worker Agent holds its
// lock at a time (enforced by mu), per §4.L.
type Manifest struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (creating if absent) the manifest file at path. Operation
// name kept close to the spec's `open(path) → handle`.
func Open(path string) (*Manifest, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("restart: open %s: %w", path, err)
	}
	return &Manifest{path: path, f: f}, nil
}

// Update appends record as the new checkpoint line and fsyncs before
// returning, so a crash after Update never loses a commit.
func (m *Manifest) Update(record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	line := formatRecord(record)
	if _, err := m.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("restart: write record: %w", err)
	}
	return m.f.Sync()
}

// MarkComplete rewrites the manifest with a single human-readable
// "completed successfully" record and the total bytes written, per the
// clean-finish behavior in §4.L.
func (m *Manifest) MarkComplete(totalBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.f.Truncate(0); err != nil {
		return fmt.Errorf("restart: truncate for completion: %w", err)
	}
	if _, err := m.f.Seek(0, 0); err != nil {
		return fmt.Errorf("restart: seek for completion: %w", err)
	}
	line := fmt.Sprintf("completed successfully total_bytes=%d flags=%s\n", totalBytes, FlagSuccessfulCompletion)
	if _, err := m.f.WriteString(line); err != nil {
		return fmt.Errorf("restart: write completion record: %w", err)
	}
	return m.f.Sync()
}

// Close releases the underlying file handle.
func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}

func formatRecord(r Record) string {
	flags := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		flags[i] = string(f)
	}
	return fmt.Sprintf(
		"op=%d byte_location=%d length=%d source_host=%s destination_host=%s source_path=%s destination_path=%s flags=%s",
		r.LastCommittedOp, r.LastCommittedByteLocation, r.LastCommittedLength,
		r.SourceHost, r.DestinationHost, r.SourcePath, r.DestinationPath,
		strings.Join(flags, ","),
	)
}

// ParseState is the outcome of reading a manifest on resume: the last
// checkpointed Record, and whether the manifest recorded a clean finish
// (in which case there's nothing to resume).
type ParseState struct {
	Completed  bool
	TotalBytes int64
	Last       Record
	Found      bool
}

// Parse reads the manifest at path and returns its last-committed state,
// for the Run Controller to consult on resume (§4.L "read by the Run
// Controller on resume").
func Parse(path string) (ParseState, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ParseState{}, nil
		}
		return ParseState{}, fmt.Errorf("restart: open %s for parse: %w", path, err)
	}
	defer f.Close()

	var state ParseState
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "completed successfully") {
			state.Completed = true
			state.TotalBytes = parseField(line, "total_bytes=")
			continue
		}
		rec, err := parseRecordLine(line)
		if err != nil {
			return state, err
		}
		state.Last = rec
		state.Found = true
	}
	if err := scanner.Err(); err != nil {
		return state, fmt.Errorf("restart: scan %s: %w", path, err)
	}
	return state, nil
}

func parseField(line, key string) int64 {
	idx := strings.Index(line, key)
	if idx < 0 {
		return 0
	}
	rest := line[idx+len(key):]
	end := strings.IndexByte(rest, ' ')
	if end >= 0 {
		rest = rest[:end]
	}
	n, _ := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	return n
}

func parseRecordLine(line string) (Record, error) {
	var rec Record
	fields := strings.Fields(line)
	for _, field := range fields {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := kv[0], kv[1]
		switch key {
		case "op":
			rec.LastCommittedOp, _ = strconv.ParseInt(val, 10, 64)
		case "byte_location":
			rec.LastCommittedByteLocation, _ = strconv.ParseInt(val, 10, 64)
		case "length":
			rec.LastCommittedLength, _ = strconv.ParseInt(val, 10, 64)
		case "source_host":
			rec.SourceHost = val
		case "destination_host":
			rec.DestinationHost = val
		case "source_path":
			rec.SourcePath = val
		case "destination_path":
			rec.DestinationPath = val
		case "flags":
			if val != "" {
				for _, f := range strings.Split(val, ",") {
					rec.Flags = append(rec.Flags, Flag(f))
				}
			}
		}
	}
	return rec, nil
}
