package shutdown

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iotaledger/hive.go/daemon"
	"github.com/iotaledger/hive.go/logger"
)

const (
	// the maximum amount of time to wait for background workers to terminate. After that the process is killed.
	waitToKillTimeout = 60 * time.Second
)

// ShutdownHandler waits until a shutdown signal was received or a plugin requested a
// self-shutdown, and shuts down all background workers in priority order.
type ShutdownHandler struct {
	log              *logger.Logger
	daemon           daemon.Daemon
	gracefulStop     chan os.Signal
	nodeSelfShutdown chan string
}

// NewShutdownHandler creates a new shutdown handler.
func NewShutdownHandler(log *logger.Logger, daemon daemon.Daemon) *ShutdownHandler {

	gs := &ShutdownHandler{
		log:              log,
		daemon:           daemon,
		gracefulStop:     make(chan os.Signal, 1),
		nodeSelfShutdown: make(chan string, 1),
	}

	signal.Notify(gs.gracefulStop, syscall.SIGTERM, syscall.SIGINT)

	return gs
}

// SelfShutdown instructs the node to shut down cleanly without receiving an interrupt signal.
func (gs *ShutdownHandler) SelfShutdown(msg string) {
	select {
	case gs.nodeSelfShutdown <- msg:
	default:
	}
}

// Run starts the ShutdownHandler go routine.
func (gs *ShutdownHandler) Run() {

	go func() {
		select {
		case <-gs.gracefulStop:
			gs.log.Warnf("Received shutdown request - waiting (max %v) to finish processing ...", waitToKillTimeout)
		case msg := <-gs.nodeSelfShutdown:
			gs.log.Warnf("Node self-shutdown: %s; waiting (max %v) to finish processing ...", msg, waitToKillTimeout)
		}

		go gs.watchWorkers(time.Now())

		gs.daemon.ShutdownAndWait()
	}()
}

// watchWorkers reports the workers still running and kills the process once the timeout passed.
func (gs *ShutdownHandler) watchWorkers(start time.Time) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for now := range ticker.C {
		elapsed := now.Sub(start)
		if elapsed > waitToKillTimeout {
			gs.log.Fatal("Background workers did not terminate in time! Forcing shutdown ...")
		}

		running := gs.daemon.GetRunningBackgroundWorkers()
		if len(running) == 0 {
			continue
		}
		gs.log.Warnf("Received shutdown request - waiting (max %v) to finish processing (%s) ...", (waitToKillTimeout - elapsed).Truncate(time.Second), strings.Join(running, ", "))
	}
}
