package main

import (
	"context"
	"flag"
	"os"

	"f0oster/zbxsync/config"
	"f0oster/zbxsync/database"
	"f0oster/zbxsync/glpi"
	"f0oster/zbxsync/importer"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/marker"
	"f0oster/zbxsync/reconcile"
	"f0oster/zbxsync/snapshot"
	"f0oster/zbxsync/zabbix"
)

func main() {
	configName := flag.String("config", "settings.env", "Path to the environment config file")
	dryRun := flag.Bool("dry-run", false, "Plan and log operations without applying them")
	flag.Parse()

	cfg, err := config.LoadEnvConfig(*configName)
	if err != nil {
		logging.Default().Fatal().Err(err).Msg("loading configuration failed")
	}
	logging.Setup(cfg.LogLevel)
	log := logging.Default()

	ctx := context.Background()

	source := glpi.NewClient(cfg.GlpiURL, cfg.GlpiAppToken, cfg.GlpiUserToken)
	if err := source.InitSession(ctx); err != nil {
		log.Fatal().Err(err).Msg("GLPI session setup failed")
	}
	defer func() {
		if err := source.KillSession(context.Background()); err != nil {
			log.Warn().Err(err).Msg("closing GLPI session failed")
		}
	}()

	equipment, err := source.ListEquipment(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing GLPI equipment failed")
	}
	src := snapshot.BuildSource(equipment, cfg.ProxyList)
	log.Info().
		Int("equipment", len(equipment)).
		Int("snapshot", src.Len()).
		Strs("partitions", src.Partitions()).
		Msg("source snapshot captured")

	zbx := zabbix.NewClient(cfg.ZabbixURL)
	if err := zbx.Login(ctx, cfg.ZabbixUser, cfg.ZabbixPassword); err != nil {
		log.Fatal().Err(err).Msg("Zabbix login failed")
	}
	lookups, err := zabbix.FetchLookups(ctx, zbx)
	if err != nil {
		log.Fatal().Err(err).Msg("fetching Zabbix lookup tables failed")
	}
	target := zabbix.NewTarget(zbx, lookups)

	store := marker.NewStore(cfg.MarkerFile)
	lastSync, err := store.Read()
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.MarkerFile).Msg("reading sync marker failed")
	}

	// Only configured proxies take part in planning; hosts on proxies
	// outside the allow-list are never touched.
	proxyIDs := make(map[string]string, len(cfg.ProxyList))
	for _, network := range cfg.ProxyList {
		name := snapshot.ProxyPrefix + network
		if id, ok := lookups.Proxies[name]; ok {
			proxyIDs[name] = id
		}
	}

	plan, err := reconcile.Build(ctx, reconcile.Inputs{
		Source:   src,
		ProxyIDs: proxyIDs,
		Members:  zbx.HostNamesByProxy,
		Expand:   source.Expand,
		Marker:   lastSync,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("building reconciliation plan failed")
	}
	log.Info().
		Int("create", len(plan.ToCreate)).
		Int("delete", len(plan.ToDelete)).
		Int("update", len(plan.ToUpdate)).
		Int("moved", len(plan.Moved)).
		Int("partition_errors", len(plan.PartitionErrors)).
		Msg("plan ready")

	svc := importer.NewService(source, target, store).WithDryRun(*dryRun)
	if cfg.DatabaseURL != "" {
		db := database.NewDatabase(cfg.DatabaseURL)
		if err := db.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("run-history store unavailable, runs will not be recorded")
		} else {
			defer db.Close()
			svc = svc.WithHistory(database.NewRecorder(db))
		}
	}

	if _, err := svc.Apply(ctx, plan, src); err != nil {
		log.Error().Err(err).Msg("apply failed")
		os.Exit(1)
	}
}
