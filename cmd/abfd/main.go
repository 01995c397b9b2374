// Command abfd is the ACL-based multi-link forwarding engine's process
// entrypoint: it loads configuration, wires together every store and the
// datapath nodes, starts the management event feed, and blocks until
// signaled to shut down. Grounded on the teacher's cmd/yanfd/main.go wiring
// order (version banner -> config -> logger -> workers -> mgmt -> signal
// wait -> drain).
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/nextlink/abf/acl"
	"github.com/nextlink/abf/attach"
	"github.com/nextlink/abf/control"
	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/datapath"
	"github.com/nextlink/abf/decision"
	"github.com/nextlink/abf/defroute"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/link"
	"github.com/nextlink/abf/localaddr"
	"github.com/nextlink/abf/mgmt"
	"github.com/nextlink/abf/policy"
	"github.com/nextlink/abf/quality"
)

// Version and BuildTime are set via -ldflags at build time, matching the
// teacher's cmd/yanfd/main.go pattern.
var Version string
var BuildTime string

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to abfd.toml (omit to run with defaults)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("abfd %s (built %s)\n", orDefault(Version, "devel"), orDefault(BuildTime, "unknown"))
		return
	}

	core.Version = Version
	core.BuildTime = BuildTime
	core.StartTimestamp = time.Now()

	if *configFile != "" {
		if err := core.LoadConfig(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, "abfd: unable to load config: ", err)
			os.Exit(1)
		}
	} else {
		core.LoadConfigDefaults()
	}
	core.InitLogger()
	core.NumWorkerThreads = core.GetConfigIntDefault("engine.worker_threads", 1)

	core.LogInfo("Main", "starting abfd ", orDefault(Version, "devel"))

	maxAdjacency := core.GetConfigIntDefault("engine.max_adjacency", fib.MaxAdjacency)

	links := link.New(maxAdjacency)
	pols := policy.New()
	attached := attach.New(pols, noACLRules)
	local := localaddr.New()
	qual := quality.New(links)

	fibV4 := fib.NewTable()
	fibV6 := fib.NewTable()
	defrt := defroute.New(&fibDefaultRouteFinder{v4: fibV4, v6: fibV6})

	eng := decision.New(links, defrt, pols)
	eng.SetQuality(qual)

	api := control.New(links, pols, attached, defrt, qual)

	mgmtCfg := parseMgmtListen(core.GetConfigStringDefault("engine.mgmt_listen", "127.0.0.1:2323"))
	events := mgmt.NewListener(mgmtCfg)
	api.Events = events

	dpV4, err := datapath.New(fib.FamilyV4, fibV4, attached, pols, eng, local, logEnqueuer{})
	if err != nil {
		core.LogFatal("Main", "unable to create IPv4 datapath node: ", err)
	}
	dpV6, err := datapath.New(fib.FamilyV6, fibV6, attached, pols, eng, local, logEnqueuer{})
	if err != nil {
		core.LogFatal("Main", "unable to create IPv6 datapath node: ", err)
	}

	go events.Run()
	core.LogInfo("Main", "management listener on ", mgmtCfg.Bind, ":", mgmtCfg.Port)

	// Frame capture and the forwarding-graph dispatcher that would feed
	// dpV4.ProcessFrame/dpV6.ProcessFrame are the routing subsystem's
	// responsibility and out of scope (spec.md §1); the datapath nodes sit
	// ready to be driven once that plumbing exists.

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt)
	receivedSig := <-sigChannel
	core.LogInfo("Main", "received signal ", receivedSig.String(), " - exiting")

	events.Close()
	dpV4.Close()
	dpV6.Close()
}

// parseMgmtListen splits engine.mgmt_listen ("host:port") into a
// mgmt.ListenerConfig, falling back to port 2323 on a malformed value.
func parseMgmtListen(addr string) mgmt.ListenerConfig {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return mgmt.ListenerConfig{Bind: addr, Port: 2323}
	}
	var port uint16
	fmt.Sscanf(portStr, "%d", &port)
	return mgmt.ListenerConfig{Bind: host, Port: port}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// noACLRules is the Attachment Store's ACL-rule-set collaborator. ACL rule
// provisioning is out of scope (spec.md §1: "CLI parsing, configuration
// wire protocol, persisted state loading"); an operational deployment
// supplies this from whatever config/CLI layer owns ACL objects.
func noACLRules(aclID uint32) []acl.Rule { return nil }

// logEnqueuer is the minimal Enqueuer: it logs the forwarding decision
// instead of handing it to a real graph dispatcher, which spec.md §1 marks
// out of scope.
type logEnqueuer struct{}

func (logEnqueuer) Enqueue(nextNode string, adjIndex fib.Adj, frame []byte) {
	core.LogTrace("Datapath", "enqueue next_node=", nextNode, " adj=", adjIndex, " bytes=", len(frame))
}

// fibDefaultRouteFinder adapts the fib package's concrete LPM tables to the
// defroute.Tracker's FIBEntryFinder collaborator: a lookup of the
// all-zeros address only ever matches the all-zeros route, since anything
// more specific covers a different address.
type fibDefaultRouteFinder struct {
	v4 *fib.Table
	v6 *fib.Table
}

func (f *fibDefaultRouteFinder) FindDefaultRouteEntry(family fib.Family) (bool, []fib.Adj) {
	var lb fib.LoadBalance
	if family == fib.FamilyV6 {
		lb = f.v6.LookupV6([16]byte{})
	} else {
		lb = f.v4.LookupV4([4]byte{})
	}
	if lb.NBuckets() == 0 {
		return false, nil
	}
	adjs := make([]fib.Adj, 0, lb.NBuckets())
	for i := 0; i < lb.NBuckets(); i++ {
		b := lb.Bucket(i)
		if b.IsValid() {
			adjs = append(adjs, b.AdjIndex)
		}
	}
	return len(adjs) > 0, adjs
}
