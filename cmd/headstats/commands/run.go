package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tolelom/headstats/config"
	"github.com/tolelom/headstats/core"
	"github.com/tolelom/headstats/events"
	"github.com/tolelom/headstats/indexer"
	"github.com/tolelom/headstats/ledger"
	"github.com/tolelom/headstats/metrics"
	"github.com/tolelom/headstats/network"
	"github.com/tolelom/headstats/node"
	"github.com/tolelom/headstats/rpc"
	"github.com/tolelom/headstats/storage"
	"github.com/tolelom/headstats/wallet"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = time.Minute

// NewRunCmd returns the command that starts the aggregator
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Watch the configured heads and serve their statistics",
		PreRunE: loadConfig,
		RunE:    runHeadstats,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runHeadstats(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tlsCfg, err := config.LoadTLSConfig(_config.TLS)
	if err != nil {
		logger.WithError(err).Fatal("Cannot load TLS config")
	}
	validator, err := core.NewValidator(_config.Contract.ScriptAddress)
	if err != nil {
		logger.WithError(err).Fatal("Cannot parse script address")
	}

	emitter := events.NewEmitter(logger.WithField("prefix", "events"))
	collector := metrics.New()
	collector.Attach(emitter)

	db, err := storage.NewMemLevelDB()
	if err != nil {
		logger.WithError(err).Fatal("Cannot open history store")
	}
	defer db.Close()
	history := indexer.New(db, emitter, logger.WithField("prefix", "indexer"))

	inbound := events.NewChannel()
	reports := make(chan network.TaskExit, 2*len(_config.Nodes))
	deps := node.Deps{
		Inbound:   inbound,
		Validator: validator,
		Emitter:   emitter,
		TLS:       tlsCfg,
		Report:    reports,
		Logger:    logger.WithField("prefix", "node"),
	}

	nodes, err := connectNodes(ctx, deps)
	if err != nil {
		logger.WithError(err).Fatal("Cannot start nodes")
	}
	registry := node.NewRegistry(nodes)

	go supervise(reports, logger.WithField("prefix", "supervisor"))

	dispatcher := node.NewDispatcher(registry, inbound, emitter, logger.WithField("prefix", "dispatcher"))
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		dispatcher.Run()
	}()

	if ttl := _config.TTL(); ttl > 0 {
		go sweep(ctx, registry, ttl, logger.WithField("prefix", "sweeper"))
	}

	server := rpc.NewServer(
		_config.RPCAddr,
		rpc.NewHandler(registry, history),
		_config.RPCAuthToken,
		collector.Handler(),
		logger.WithField("prefix", "rpc"),
	)
	if err := server.Start(); err != nil {
		logger.WithError(err).Fatal("Cannot start API server")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := server.Stop(); err != nil {
		logger.WithError(err).Warn("API server shutdown")
	}
	registry.Close()
	inbound.Close()
	<-dispatched
	return nil
}

// connectNodes builds every configured node concurrently. The first failure
// cancels the rest and closes whatever already connected.
func connectNodes(ctx context.Context, deps node.Deps) ([]*node.Node, error) {
	scriptAddr, err := ledger.ParseBech32Address(_config.Contract.ScriptAddress)
	if err != nil {
		return nil, err
	}
	password := config.KeyPassword()

	nodes := make([]*node.Node, len(_config.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, nc := range _config.Nodes {
		g.Go(func() error {
			priv, err := wallet.LoadAdminKey(nc.AdminKeyFile, password)
			if err != nil {
				return fmt.Errorf("node %s: admin key: %w", nc.LocalURL, err)
			}
			n, err := node.New(gctx, node.Config{
				LocalURL:   nc.LocalURL,
				RemoteURL:  nc.RemoteURL,
				MaxPlayers: nc.MaxPlayers,
				Persisted:  nc.Persisted,
				Wallet:     wallet.New(priv, scriptAddr, _config.Contract.ScriptCBOR),
			}, deps)
			if err != nil {
				return fmt.Errorf("node %s: %w", nc.LocalURL, err)
			}
			nodes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, n := range nodes {
			if n != nil {
				n.Close()
			}
		}
		return nil, err
	}
	return nodes, nil
}

func supervise(reports <-chan network.TaskExit, logger *logrus.Entry) {
	for r := range reports {
		entry := logger.WithFields(logrus.Fields{
			"task":      r.Task,
			"authority": r.Authority,
		})
		if r.Err != nil {
			entry.WithError(r.Err).Error("Task failed")
			continue
		}
		entry.Info("Task finished")
	}
}

func sweep(ctx context.Context, registry *node.Registry, ttl time.Duration, logger *logrus.Entry) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for authority, entries := range registry.Sweep(ttl, now) {
				for _, e := range entries {
					logger.WithFields(logrus.Fields{
						"authority": authority,
						"tx_id":     e.TxID,
						"player":    e.Update.Player,
						"bytes":     e.Update.Bytes,
						"kills":     e.Update.Kills,
						"items":     e.Update.Items,
						"secrets":   e.Update.Secrets,
						"play_time": e.Update.PlayTime,
					}).Warn("Dropping unconfirmed transaction, its delta is lost")
				}
			}
		}
	}
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("log_level", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log_file", _config.LogFile, "Mirror log output to this file")
	cmd.Flags().String("rpc_addr", _config.RPCAddr, "Listen IP:Port for the HTTP API")
	cmd.Flags().String("rpc_auth_token", _config.RPCAuthToken, "Bearer token required on JSON-RPC requests")
	cmd.Flags().Uint64("ttl_minutes", _config.TTLMinutes, "Drop pending transactions older than this (0 keeps them)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}
	if err := _config.Validate(); err != nil {
		return err
	}

	_config.Logger().WithFields(logrus.Fields{
		"log_level":   _config.LogLevel,
		"log_file":    _config.LogFile,
		"rpc_addr":    _config.RPCAddr,
		"ttl_minutes": _config.TTLMinutes,
		"nodes":       len(_config.Nodes),
	}).Debug("RUN")
	return nil
}

// Bind all flags and read the config file into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(viper.GetViper(), configFile)
	if err != nil {
		return err
	}
	_config = cfg
	return nil
}
