package chaos

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
)

// BackendKiller periodically terminates a random Postgres backend, forcing
// in-flight settlements to fail mid-call. The conditional invoice update
// either committed or it did not, so the oracles must still hold.
type BackendKiller struct {
	DSN      string
	Interval time.Duration
	Rand     *rand.Rand
	Log      *log.Logger
}

func (k *BackendKiller) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.killOne(ctx)
		}
	}
}

func (k *BackendKiller) killOne(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	conn, err := pgx.Connect(callCtx, k.DSN)
	if err != nil {
		k.Log.Printf("chaos: connect: %v", err)
		return
	}
	defer conn.Close(callCtx)

	rows, err := conn.Query(callCtx,
		`SELECT pid FROM pg_stat_activity
         WHERE backend_type = 'client backend' AND pid <> pg_backend_pid()`)
	if err != nil {
		k.Log.Printf("chaos: list backends: %v", err)
		return
	}
	var pids []int
	for rows.Next() {
		var pid int
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return
		}
		pids = append(pids, pid)
	}
	rows.Close()
	if len(pids) == 0 {
		return
	}

	victim := pids[k.Rand.Intn(len(pids))]
	if _, err := conn.Exec(callCtx, "SELECT pg_terminate_backend($1)", victim); err != nil {
		k.Log.Printf("chaos: terminate %d: %v", victim, err)
		return
	}
	k.Log.Printf("chaos: terminated backend %d", victim)
}
