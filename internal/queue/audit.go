package queue

import (
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sync"
)

// AuditLog appends one human-readable line per booking event to a file.
type AuditLog struct {
    path string
    mu   sync.Mutex
}

// NewAuditLog does not touch the filesystem until the first write.
func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// HandleMessage decodes a broker payload and records it.
func (a *AuditLog) HandleMessage(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.BookingID == 0 {
        return fmt.Errorf("incomplete event %q", ev.EventID)
    }
    return a.Write(ev)
}

// Write appends ev to the log file, creating its directory if needed.
func (a *AuditLog) Write(ev BookingEvent) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(formatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatAuditLine(ev BookingEvent) string {
    return fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | vehicle_id=%d | slot_id=%d | status=%s | fare=%d cents | event_id=%s\n",
        ev.OccurredAt, ev.Type, ev.BookingID, ev.UserID, ev.VehicleID, ev.SlotID, ev.Status, ev.FareCents, ev.EventID)
}
