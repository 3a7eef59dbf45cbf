package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

const tasksDSNParams = "?_journal=WAL&_timeout=5000&_busy_timeout=5000"

// Client owns the cover queues and the SQLite file they persist to.
type Client struct {
	client  *backlite.Client
	db      *sql.DB
	workers int

	mu      sync.Mutex
	running bool
}

// TasksDBPath places the queue file beside the library database:
// "data/library.db" becomes "data/library-tasks.db".
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient creates the queue database, and its directory, beside
// mainDBPath. The library itself may live in postgres, so the directory is
// not assumed to exist.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	workers := max(cfg.Workers, 1)
	path := TasksDBPath(mainDBPath)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+tasksDSNParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err == nil {
		err = client.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up task queue at %s: %w", path, err)
	}

	return &Client{client: client, db: db, workers: workers}, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start launches the workers and returns. Only the first call has an effect.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.client.Start(ctx)
	log.Printf("Task queue running with %d workers", c.workers)
}

// Stop waits for in-flight removals. It reports false when ctx ran out first.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return true
	}

	if !c.client.Stop(ctx) {
		log.Printf("Task queue stop timed out, pending cover removals resume on next start")
		return false
	}
	log.Printf("Task queue stopped")
	return true
}

// Close releases the queue database after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Add enqueues tasks; finish the operation with Save.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Status reports the state of an enqueued task.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// queueLogger routes backlite messages to the standard logger.
type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
