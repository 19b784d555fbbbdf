package race

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	journalBufferSize    = 1024                   // Circular buffer size
	journalMaxPerSec     = 5000                   // Global rate limit
	journalMaxPerConn    = 50                     // Per-connection rate limit per second
	journalFlushInterval = 100 * time.Millisecond // How often to flush
	journalFlushSize     = 64                     // Entries per batch write
	connLimiterCleanup   = 5 * time.Minute        // Cleanup interval for per-conn limiters
)

// JournalKind classifies journal entries.
type JournalKind string

const (
	JournalJoin         JournalKind = "join"
	JournalLeave        JournalKind = "leave"
	JournalRaceStart    JournalKind = "race_start"
	JournalRacePause    JournalKind = "race_pause"
	JournalRaceResume   JournalKind = "race_resume"
	JournalPlayerFinish JournalKind = "player_finish"
	JournalRaceFinish   JournalKind = "race_finish"
	JournalRestart      JournalKind = "restart"
)

// JournalEntry is one line of the append-only race journal.
type JournalEntry struct {
	Kind      JournalKind `json:"kind"`
	Timestamp int64       `json:"timestamp"` // Unix nano
	Sequence  uint64      `json:"sequence"`  // Monotonic
	RoomCode  string      `json:"roomCode"`
	ConnID    string      `json:"connId,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// Journal provides bounded, rate-limited lifecycle logging with
// backpressure: a ring buffer written by the event handlers and drained by
// an async batch writer. Under flood it drops rather than blocks. Producers
// are the ws reader goroutines plus the tick goroutine, so the ring is
// mutex-guarded; the rate limiters keep that lock uncontended in practice.
type Journal struct {
	bufMu     sync.Mutex
	buffer    [journalBufferSize]JournalEntry
	writeHead uint64 // guarded by bufMu, producer position
	readHead  uint64 // guarded by bufMu, consumer position

	globalLimiter *rate.Limiter
	connLimiters  sync.Map // map[string]*connLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type connLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewJournal creates a stopped journal.
func NewJournal() *Journal {
	return &Journal{
		globalLimiter: rate.NewLimiter(journalMaxPerSec, journalMaxPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file and begins the async writer.
func (j *Journal) Start(filePath string) error {
	if j.running.Load() {
		return nil
	}

	j.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()
	return nil
}

// Stop flushes and shuts the journal down.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Emit records an entry. Returns false when rate limited or stopped.
func (j *Journal) Emit(kind JournalKind, roomCode, connID, detail string) bool {
	if !j.running.Load() {
		return false
	}

	if !j.globalLimiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}
	if connID != "" {
		if !j.getConnLimiter(connID).Allow() {
			atomic.AddUint64(&j.droppedCount, 1)
			return false
		}
	}

	j.bufMu.Lock()
	head := j.writeHead
	j.writeHead++
	if head-j.readHead >= journalBufferSize {
		// Rolling window: drop oldest under pressure.
		j.readHead++
		atomic.AddUint64(&j.droppedCount, 1)
	}
	j.buffer[head%journalBufferSize] = JournalEntry{
		Kind:      kind,
		Timestamp: time.Now().UnixNano(),
		Sequence:  head,
		RoomCode:  roomCode,
		ConnID:    connID,
		Detail:    detail,
	}
	j.bufMu.Unlock()

	atomic.AddUint64(&j.totalCount, 1)
	return true
}

func (j *Journal) getConnLimiter(connID string) *rate.Limiter {
	if entry, ok := j.connLimiters.Load(connID); ok {
		e := entry.(*connLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &connLimiterEntry{
		limiter:  rate.NewLimiter(journalMaxPerConn, journalMaxPerConn/5),
		lastUsed: time.Now(),
	}
	actual, _ := j.connLimiters.LoadOrStore(connID, entry)
	return actual.(*connLimiterEntry).limiter
}

func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(journalFlushInterval)
	defer ticker.Stop()

	batch := make([]JournalEntry, 0, journalFlushSize)
	for {
		select {
		case <-j.stopChan:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(connLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-connLimiterCleanup)
			j.connLimiters.Range(func(key, value interface{}) bool {
				if value.(*connLimiterEntry).lastUsed.Before(cutoff) {
					j.connLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (j *Journal) collectBatch(batch []JournalEntry) []JournalEntry {
	j.bufMu.Lock()
	defer j.bufMu.Unlock()

	for i := j.readHead; i < j.writeHead && len(batch) < journalFlushSize; i++ {
		batch = append(batch, j.buffer[i%journalBufferSize])
	}
	j.readHead += uint64(len(batch))
	return batch
}

// flushBatch writes entries as newline-delimited JSON.
func (j *Journal) flushBatch(batch []JournalEntry) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}
	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		j.file.Write(data)
		j.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (j *Journal) Stats() map[string]interface{} {
	j.bufMu.Lock()
	head, tail := j.writeHead, j.readHead
	j.bufMu.Unlock()
	return map[string]interface{}{
		"total":   atomic.LoadUint64(&j.totalCount),
		"dropped": atomic.LoadUint64(&j.droppedCount),
		"pending": head - tail,
		"running": j.running.Load(),
	}
}
