// Monitor watches heartbeats and backpressure reports from running sentiment
// workers and prints a one-line status per update.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
)

type heartbeat struct {
	ModelName    string    `json:"model_name"`
	Status       string    `json:"status"`
	ModelState   string    `json:"model_state"`
	LastActivity time.Time `json:"last_activity"`
	Endpoint     string    `json:"endpoint"`
}

type backpressureReport struct {
	ModelName        string `json:"model_name"`
	PendingMessages  int64  `json:"pending_messages"`
	ActiveProcessing int64  `json:"active_processing"`
	WorkerCount      int    `json:"worker_count"`
	Status           string `json:"status"`
}

func main() {
	var natsURL = flag.String("nats", nats.DefaultURL, "NATS server URL")
	flag.Parse()

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	_, err = nc.Subscribe("models.*.heartbeat", func(msg *nats.Msg) {
		var hb heartbeat
		if err := json.Unmarshal(msg.Data, &hb); err != nil {
			log.Printf("bad heartbeat on %s: %v", msg.Subject, err)
			return
		}
		fmt.Printf("[heartbeat]    model=%s status=%s model_state=%s endpoint=%s\n",
			hb.ModelName, hb.Status, hb.ModelState, hb.Endpoint)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to heartbeats: %v", err)
	}

	_, err = nc.Subscribe("monitoring.models.backpressure.*", func(msg *nats.Msg) {
		var report backpressureReport
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			log.Printf("bad backpressure report on %s: %v", msg.Subject, err)
			return
		}
		if report.PendingMessages > 0 || report.Status != "healthy" {
			fmt.Printf("[backpressure] model=%s pending=%d active=%d workers=%d status=%s\n",
				report.ModelName, report.PendingMessages, report.ActiveProcessing,
				report.WorkerCount, report.Status)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to backpressure reports: %v", err)
	}

	fmt.Printf("Watching %s for model heartbeats (Ctrl-C to stop)\n", *natsURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
