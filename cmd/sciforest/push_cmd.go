package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/redis.v5"

	"github.com/ezoic/sciforest/core/model"
	"github.com/ezoic/sciforest/ensemble"
	"github.com/ezoic/sciforest/pkg/log"
)

type pushCmdConfig struct {
	*rootCmdConfig
	redisAddr   string
	redisPrefix string
}

func pushCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &pushCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "push MODEL_FILE...",
		Short: "Store model files in redis",
		Long:  `Store model resources in redis under their resource id, where ensembles loaded with --redis-addr find their components`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.redisAddr == "" {
				return fmt.Errorf("required redis-addr flag was not set")
			}
			rc := redis.NewClient(&redis.Options{Addr: config.redisAddr})
			defer rc.Close()
			return config.push(context.Background(), ensemble.NewRedisResolver(rc, config.redisPrefix, nil), args)
		},
	}
	cmd.PersistentFlags().StringVar(&(config.redisAddr), "redis-addr", "", "address of the redis server (required)")
	cmd.PersistentFlags().StringVar(&(config.redisPrefix), "redis-prefix", "sciforest", "prefix of the redis keys")
	return cmd
}

func (pcc *pushCmdConfig) push(ctx context.Context, store *ensemble.StoreResolver, paths []string) error {
	logger := log.GetLoggerWithName("push")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading model from %s: %v", path, err)
		}
		res, err := model.Decode(data)
		if err != nil {
			return fmt.Errorf("parsing model from %s: %v", path, err)
		}
		if res.ID == "" {
			return fmt.Errorf("%s has no resource id", path)
		}
		if err := store.Put(ctx, res.ID, data); err != nil {
			return err
		}
		logger.Info("Model stored", log.ModelNameKey, res.ID, "fingerprint", res.Fingerprint())
	}
	return nil
}
