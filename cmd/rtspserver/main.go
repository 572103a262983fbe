// Command rtspserver accepts RTSP control connections and serves a single
// published SessionDescription to any number of reading peers, using
// serversession.Session per accepted connection.
package main

import (
	"flag"
	"log"
	"net"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/conn"
	"github.com/bluenviron/rtspsession/pkg/sessiondesc"
	"github.com/bluenviron/rtspsession/rtsp/serversession"
)

func main() {
	addr := flag.String("addr", ":8554", "address to listen on")
	flag.Parse()

	sd := sessiondesc.New()
	sd.AddMedia("video", 96, "track1")
	source := &serversession.Source{SDP: sd}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("rtspserver listening on %s", *addr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(nc, source)
	}
}

func handleConn(nc net.Conn, source *serversession.Source) {
	defer nc.Close()
	log.Printf("client connected: %s", nc.RemoteAddr())

	c := conn.New(nc)
	host, _, _ := net.SplitHostPort(nc.LocalAddr().String())
	sess := serversession.New(c, host, source)
	sess.OnBye = func(trackIndex int) {
		log.Printf("track %d: upstream BYE, terminating peer session", trackIndex)
	}

	for {
		req, err := c.ReadRequest()
		if err != nil {
			log.Printf("client disconnected: %s (%v)", nc.RemoteAddr(), err)
			return
		}

		res := sess.Handle(req)
		if err := c.WriteResponse(res); err != nil {
			log.Printf("write response: %v", err)
			return
		}

		if req.Method == base.Teardown {
			return
		}
	}
}
