package main

import (
	"flag"
	"os"
	"time"

	"github.com/mahsjong/core/mahjong"
	"github.com/mahsjong/core/netcode"
	"github.com/mahsjong/core/utils"
	"github.com/sirupsen/logrus"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

func main() {
	var (
		listen   = flag.String("listen", "", "host a match on this address (host:port)")
		join     = flag.String("join", "", "join the match hosted at this address")
		password = flag.String("password", "mahsjong", "shared transport password")
		salt     = flag.String("salt", "tiles", "shared key-derivation salt")
		confDir  = flag.String("conf", ".", "directory holding mahsjong.yaml")
	)
	flag.Parse()
	logger.SetLogger(utils.Logger(logrus.InfoLevel))

	rule := mahjong.LoadRule(*confDir)
	net := netcode.NewNetworkController()
	match := mahjong.NewMatchController(net, rule)

	var err error
	switch {
	case *listen != "":
		err = net.ConnectAsHost(netcode.NewKCPHost(*listen, *password, *salt))
	case *join != "":
		err = net.ConnectAsClient(netcode.NewKCPClient(*join, *password, *salt))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Log.Fatalf("connect failed: %v", err)
	}
	logger.Log.Infof("room %s open", net.Room())

	run(net, match, *listen != "")
}

// run drives the fixed-rate frame loop until the match concludes or the
// connection drops.
func run(net *netcode.NetworkController, match *mahjong.MatchController, isHost bool) {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	dealt := false
	last := time.Now()
	for now := range ticker.C {
		dt := now.Sub(last).Seconds()
		last = now

		match.Update(dt)

		if isHost && !dealt && net.Status() == netcode.StatusConnected {
			match.InitHost()
			dealt = true
			logger.Log.Info("match dealt, host to move")
		}
		switch match.Choice() {
		case mahjong.ChoiceWin:
			logger.Log.Info("match concluded: local win")
			net.Disconnect()
			return
		case mahjong.ChoiceLose:
			logger.Log.Info("match concluded: local loss")
			net.Disconnect()
			return
		}
		if net.Status() == netcode.StatusNetError {
			logger.Log.Error("connection lost, leaving match")
			return
		}
	}
}
