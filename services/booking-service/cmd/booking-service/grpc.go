package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/bookly/libs/config"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/grpcserver"
)

func startGrpcServer(ctx context.Context, logger *slog.Logger, cat *catalog.Catalog) error {
	port, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpcserver.NewServer(logger, cat)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return nil
}
