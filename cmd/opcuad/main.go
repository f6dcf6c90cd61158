/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/config"
	"github.com/facebook/opcua/server"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/server/retain"
	"github.com/facebook/opcua/server/stats"
	"github.com/facebook/opcua/ua"
)

// logTransport is the stand-in for the secure-channel layer, which is an
// external collaborator of the service core: responses are logged, not
// framed onto a socket.
type logTransport struct{}

func (logTransport) Send(channelID uint32, requestContext any, msg any) {
	log.Debugf("channel %d: sending %T", channelID, msg)
}

func main() {
	var (
		configFile     string
		loglevel       string
		monitoringPort int
		dumpAddrSpace  bool
		pidFile        string
	)

	flag.StringVar(&configFile, "config", "/etc/opcuad/opcuad.yaml", "Path to the daemon config")
	flag.StringVar(&loglevel, "loglevel", "warning", "Set a log level. Can be: debug, info, warning, error")
	flag.IntVar(&monitoringPort, "monitoringport", 8888, "Port to run monitoring server on")
	flag.BoolVar(&dumpAddrSpace, "dump-addrspace", false, "Print the configured address space as a table and exit")
	flag.StringVar(&pidFile, "pidfile", "/var/run/opcuad.pid", "Pid file location")
	flag.Parse()

	switch loglevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", loglevel)
	}

	dc, err := config.ReadDaemonConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}
	lim := dc.ApplyLimits(limits.Default())

	epDoc, err := config.LoadEndpointDocument(dc.EndpointConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	endpoint, err := server.EndpointFromConfig(epDoc)
	if err != nil {
		log.Fatal(err)
	}

	nsDoc, err := config.LoadNodeSetDocument(dc.NodeSetPath)
	if err != nil {
		log.Fatal(err)
	}
	nodes, err := nsDoc.BuildNodes()
	if err != nil {
		log.Fatal(err)
	}

	st := stats.NewJSONStats()
	core := server.NewCore(lim, endpoint, logTransport{}, st)
	if err := core.Space.Configure(nodes); err != nil {
		log.Fatal(err)
	}

	if dc.UsersConfigPath != "" {
		users, err := config.LoadUsersDocument(dc.UsersConfigPath)
		if err != nil {
			log.Fatal(err)
		}
		core.SetAuthenticator(users)
		core.SetAccessChecker(users)
	}

	if dc.RetainDBPath != "" {
		store, err := retain.Open(dc.RetainDBPath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		core.SetRetainer(store)
		restoreRetainedValues(core, store)
	}

	if dumpAddrSpace {
		dumpSpace(nodes)
		return
	}

	raiseFDLimit(lim.MaxSecureConnections)
	writePidFile(pidFile)

	go st.Start(monitoringPort)
	exporter := stats.NewPrometheusExporter(st, time.Minute)
	go exporter.Start(monitoringPort + 1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if supported, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Errorf("Failed to notify systemd: %v", err)
	} else if !supported {
		log.Debug("Running outside systemd")
	}

	core.Run(ctx)
}

// restoreRetainedValues overlays the last written values from the
// retain store onto the freshly configured address space.
func restoreRetainedValues(core *server.Core, store *retain.Store) {
	retained, err := store.Load()
	if err != nil {
		log.Errorf("Failed to load retained values: %v", err)
		return
	}
	restored := 0
	for key, dv := range retained {
		id, ok := ua.ParseNodeID(key)
		if !ok {
			log.Warningf("Skipping retained value with bad node id %q", key)
			continue
		}
		node, ok := core.Space.Read(id)
		if !ok || !node.IsVariableLike() {
			continue
		}
		if status, _ := core.Space.WriteValueFull(node, dv.Value, dv.SourceTimestamp); status != ua.Ok {
			log.Warningf("Failed to restore value for %s: %v", key, status)
			continue
		}
		restored++
	}
	log.Infof("Restored %d retained values", restored)
}

// dumpSpace renders the address space as a table, the -dump-addrspace
// debug path.
func dumpSpace(nodes []*addrspace.Node) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Options(tablewriter.WithColumnMax(40))
	table.Header([]string{"node id", "class", "browse name", "data type", "value", "refs"})

	sorted := append([]*addrspace.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID.String() < sorted[j].NodeID.String() })
	for _, n := range sorted {
		refCount, _ := n.IterateReferences()
		value := ""
		if n.IsVariableLike() {
			value = n.Value.String()
		}
		class := nodeClassName(n.Class)
		if n.Class == ua.NodeClassVariable {
			class = color.GreenString(class)
		}
		table.Append([]string{n.NodeID.String(), class, n.BrowseName.Name, n.DataType.String(), value, fmt.Sprintf("%d", refCount)})
	}
	table.Render()
}

func nodeClassName(c ua.NodeClass) string {
	switch c {
	case ua.NodeClassObject:
		return "Object"
	case ua.NodeClassVariable:
		return "Variable"
	case ua.NodeClassMethod:
		return "Method"
	case ua.NodeClassObjectType:
		return "ObjectType"
	case ua.NodeClassVariableType:
		return "VariableType"
	case ua.NodeClassReferenceType:
		return "ReferenceType"
	case ua.NodeClassDataType:
		return "DataType"
	case ua.NodeClassView:
		return "View"
	default:
		return fmt.Sprintf("NodeClass(%d)", uint32(c))
	}
}

// raiseFDLimit lifts RLIMIT_NOFILE to cover the configured connection
// count plus headroom for timers and monitoring sockets.
func raiseFDLimit(maxConns uint32) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		log.Errorf("Failed to read RLIMIT_NOFILE: %v", err)
		return
	}
	want := uint64(maxConns)*4 + 256
	if rl.Cur >= want {
		return
	}
	if want > rl.Max {
		want = rl.Max
	}
	rl.Cur = want
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		log.Errorf("Failed to raise RLIMIT_NOFILE: %v", err)
	}
}

func writePidFile(path string) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		log.Errorf("Failed to write pid file: %v", err)
	}
}
