// webhook-receiver is a development tool for inspecting notification
// deliveries. Point WEBHOOK_URL at /hook and watch what arrives.
//
// If SECRET is set, incoming X-Notehub-Signature headers are verified
// and mismatches are flagged in the stored request log.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"notehub/internal/dispatch"
)

type notification struct {
	Timestamp      string `json:"timestamp"`
	TriggerKey     string `json:"trigger_key"`
	Signature      string `json:"signature,omitempty"`
	SignatureValid *bool  `json:"signature_valid,omitempty"`
	Body           string `json:"body"`
}

type stats struct {
	Count    int64          `json:"count"`
	Last     []notification `json:"last"`
	Since    string         `json:"since"`
	BadSigns int64          `json:"bad_signatures"`
}

var (
	mu       sync.Mutex
	count    int64
	badSigns int64
	last     []notification
	since    time.Time
	secret   string
)

const maxStored = 50

func main() {
	since = time.Now().UTC()
	secret = os.Getenv("SECRET")

	addr := ":9000"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	http.HandleFunc("/hook", hookHandler)
	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		count = 0
		badSigns = 0
		last = nil
		since = time.Now().UTC()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})

	if secret != "" {
		log.Println("webhook-receiver: signature verification enabled")
	}
	log.Printf("webhook-receiver listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func hookHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	n := notification{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		TriggerKey: r.Header.Get("X-Notehub-Trigger-Key"),
		Signature:  r.Header.Get("X-Notehub-Signature"),
		Body:       string(body),
	}

	if secret != "" {
		valid := dispatch.VerifySignature(secret, body, n.Signature)
		n.SignatureValid = &valid
		if !valid {
			log.Printf("webhook-receiver: BAD SIGNATURE for trigger %s", n.TriggerKey)
		}
	}

	mu.Lock()
	count++
	if n.SignatureValid != nil && !*n.SignatureValid {
		badSigns++
	}
	last = append(last, n)
	if len(last) > maxStored {
		last = last[len(last)-maxStored:]
	}
	current := count
	mu.Unlock()

	log.Printf("webhook-receiver: #%d trigger=%s body=%s", current, n.TriggerKey, string(body))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"received":%d}`, current)
}

func statsHandler(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	s := stats{
		Count:    count,
		BadSigns: badSigns,
		Last:     last,
		Since:    since.Format(time.RFC3339),
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
