package parser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/emberlens/ccwatt/internal/model"
)

// ParseSession reads one session's primary log file plus any sub-task
// logs and returns a deduplicated, totaled usage summary.
//
// rawProjectPath, when non-empty, short-circuits project resolution;
// otherwise the project is decoded from the log's parent directory name.
// A missing log file yields an empty summary, never an error.
func ParseSession(logPath, rawProjectPath string) (*model.SessionUsage, error) {
	sessionID := strings.TrimSuffix(filepath.Base(logPath), ".jsonl")

	session := &model.SessionUsage{
		SessionID:    sessionID,
		PrimaryModel: "unknown",
	}
	resolveProject(session, logPath, rawProjectPath)

	file, err := os.Open(logPath)
	if err != nil {
		// Missing or unreadable log: empty summary with zero totals
		return session, nil
	}

	var stats scanStats
	seen := make(map[string]struct{})
	session.Records = scanRecords(file, seen, &stats)
	file.Close()

	// Sub-task logs live in a sibling directory named after the session
	for _, taskPath := range subtaskLogs(logPath, sessionID) {
		f, err := os.Open(taskPath)
		if err != nil {
			continue
		}
		// Dedup is scoped per sub-task file
		taskSeen := make(map[string]struct{})
		session.Records = append(session.Records, scanRecords(f, taskSeen, &stats)...)
		f.Close()
	}

	total(session)
	setBounds(session, logPath, stats)

	return session, nil
}

// subtaskLogs lists per-task log files for a session, if any
func subtaskLogs(logPath, sessionID string) []string {
	taskDir := filepath.Join(filepath.Dir(logPath), sessionID)
	matches, err := filepath.Glob(filepath.Join(taskDir, "agent-*.jsonl"))
	if err != nil {
		return nil
	}
	return matches
}

// total computes aggregate counts, the per-model breakdown and the
// primary model (arg-max token share, ties broken by encounter order).
func total(session *model.SessionUsage) {
	index := make(map[string]int)
	for _, rec := range session.Records {
		session.Totals.Add(rec.Usage)

		i, ok := index[rec.Model]
		if !ok {
			i = len(session.PerModel)
			index[rec.Model] = i
			session.PerModel = append(session.PerModel, model.ModelUsage{Model: rec.Model})
		}
		session.PerModel[i].Usage.Add(rec.Usage)
	}

	var best int64 = -1
	for _, mu := range session.PerModel {
		if t := mu.Usage.Total(); t > best {
			best = t
			session.PrimaryModel = mu.Model
		}
	}
}

// setBounds derives session start/end from the earliest and latest
// parseable timestamps; when none exist, fall back to file times.
func setBounds(session *model.SessionUsage, logPath string, stats scanStats) {
	if !stats.earliest.IsZero() {
		session.StartedAt = stats.earliest
		session.EndedAt = stats.latest
		return
	}
	if info, err := os.Stat(logPath); err == nil {
		session.StartedAt = info.ModTime()
		session.EndedAt = info.ModTime()
	}
}

func resolveProject(session *model.SessionUsage, logPath, rawProjectPath string) {
	if rawProjectPath != "" {
		session.ProjectPath = rawProjectPath
		session.ProjectID = rawProjectPath
		return
	}
	decoded := DecodeProjectDir(filepath.Base(filepath.Dir(logPath)))
	session.ProjectPath = decoded
	session.ProjectID = decoded
}
