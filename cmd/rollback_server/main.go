package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/byebyebruce/rollbackserver/cmd/rollback_server/api"
	"github.com/byebyebruce/rollbackserver/config"
	"github.com/byebyebruce/rollbackserver/pkg/directory"
	"github.com/byebyebruce/rollbackserver/pkg/log4gox"
	"github.com/byebyebruce/rollbackserver/server"

	l4g "github.com/alecthomas/log4go"
)

var (
	configFile  = flag.String("config", "", "config file (json/yaml), empty means defaults")
	httpAddress = flag.String("web", "", "web listen address, overrides config")
	kcpAddress  = flag.String("kcp", "", "kcp listen address, overrides config")
	udpAddress  = flag.String("udp", "", "udp listen address, overrides config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}
	if *httpAddress != "" {
		cfg.Server.Web = *httpAddress
	}
	if *kcpAddress != "" {
		cfg.Server.Reliable = *kcpAddress
	}
	if *udpAddress != "" {
		cfg.Server.Unreliable = *udpAddress
	}

	log4gox.Setup(cfg.Log.Level, cfg.Log.Color)

	var dir directory.Directory
	if cfg.Directory.BaseURL != "" {
		dir = directory.New(cfg.Directory.BaseURL, cfg.Directory.Timeout)
	} else {
		l4g.Warn("[main] no directory configured, using in-memory profiles")
		dir = directory.NewMemory(false)
	}

	s, err := server.New(cfg, dir)
	if err != nil {
		panic(err)
	}
	for _, id := range cfg.Server.Rooms {
		if _, err := s.RoomManager().CreateRoom(id); err != nil {
			l4g.Error("[main] create room %d: %v", id, err)
		}
	}
	_ = api.NewWebAPI(cfg.Server.Web, s.RoomManager())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	l4g.Info("[main] start...")
	// 主循环
QUIT:
	for {
		select {
		case sig := <-sigs:
			l4g.Info("Signal: %s", sig.String())
			break QUIT
		case <-ticker.C:
			for _, st := range s.RoomManager().Status() {
				l4g.Info("[main] room(%d) peers=%d queue=%d frame=%d replayed=%d dropped=%d",
					st.ID, st.Peers, st.Queue, st.Frame, st.Replayed, st.Dropped)
			}
		}
	}
	l4g.Info("[main] quiting...")
	s.Stop()
	l4g.Close()
}
