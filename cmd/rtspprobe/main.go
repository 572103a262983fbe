// Command rtspprobe dials an RTSP server, runs through
// OPTIONS/DESCRIBE/SETUP/PLAY on the first track, and prints that track's
// RTP packet count until interrupted, at which point it tears down cleanly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtspsession/rtsp/client"
)

func main() {
	url := flag.String("url", "", "RTSP URL to probe, e.g. rtsp://localhost:8554/stream")
	transport := flag.String("transport", "udp", "preferred transport: udp or tcp")
	user := flag.String("user", "", "username for HTTP Basic auth")
	pass := flag.String("pass", "", "password for HTTP Basic auth")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: rtspprobe -url rtsp://host:port/path")
		os.Exit(2)
	}

	cfg := client.Config{PreferredTransport: *transport}
	if *user != "" {
		cfg.Credential = &client.Credential{User: *user, Pass: *pass}
	}

	cl := client.New(cfg)
	cl.OnSessionExpired = func() {
		log.Printf("session expired, re-negotiating")
	}
	cl.OnTransportSwitch = func(from, to string) {
		log.Printf("server forced transport switch: %s -> %s", from, to)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cl.Connect(ctx, *url); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer cl.Close()

	if err := cl.Options(); err != nil {
		log.Fatalf("OPTIONS: %v", err)
	}
	if err := cl.Describe(); err != nil {
		log.Fatalf("DESCRIBE: %v", err)
	}
	if err := cl.Setup(0); err != nil {
		log.Fatalf("SETUP: %v", err)
	}

	var packetCount atomic.Uint64
	cl.OnBye = func(trackIndex int) {
		log.Printf("track %d: received RTCP BYE, terminating", trackIndex)
	}
	if ch := cl.TrackChannel(0); ch != nil {
		ch.OnRTP(func(*rtp.Packet) {
			packetCount.Add(1)
		})
	}

	if err := cl.Play(); err != nil {
		log.Fatalf("PLAY: %v", err)
	}
	log.Printf("playing, state=%s", cl.State())

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down, tearing down session")
			if err := cl.Teardown(); err != nil {
				log.Printf("TEARDOWN: %v", err)
			}
			return
		case <-ticker.C:
			log.Printf("packets seen: %d", packetCount.Load())
		}
	}
}
