package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	aviatorDomain "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/domain"
	aviatorMachine "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/machine"
	aviatorDB "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/repository/db"
	aviatorUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/usecase"
	coinflipMachine "github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/machine"
	coinflipRedis "github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/repository/redis"
	coinflipUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/usecase"
	diceHttp "github.com/Destroyer690420/stakex-sub001/internal/modules/dice/adapter/http"
	diceUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/dice/usecase"
	gatewayHttp "github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/adapter/http"
	gatewayLocal "github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/adapter/local"
	gatewayUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/usecase"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/ws"
	pokerDomain "github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	pokerDB "github.com/Destroyer690420/stakex-sub001/internal/modules/poker/repository/db"
	pokerUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/poker/usecase"
	userHttp "github.com/Destroyer690420/stakex-sub001/internal/modules/user/adapter/http"
	userLocal "github.com/Destroyer690420/stakex-sub001/internal/modules/user/adapter/local"
	userDomain "github.com/Destroyer690420/stakex-sub001/internal/modules/user/domain"
	userRepo "github.com/Destroyer690420/stakex-sub001/internal/modules/user/repository"
	userUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/user/usecase"
	walletDomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	walletDB "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/repository/db"
	walletUseCase "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/usecase"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger.InitWithFile("logs/casino/monolith.log", "info", "json", !*background)
	defer logger.Flush()

	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("failed to start pprof server")
			}
		}()
	}

	fmt.Println("Starting casino monolith... logs are written to logs/casino/monolith.log (rotating)")
	logger.InfoGlobal().Msg("starting casino monolith")

	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Infrastructure
	dbConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.User.Database.Host, cfg.User.Database.Port, cfg.User.Database.User, cfg.User.Database.Password, cfg.User.Database.Name)

	db, err := gorm.Open(postgres.Open(dbConnStr), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("failed to get database instance")
	}

	// Postgres default max_connections is usually 100; leave headroom.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("failed to ping database")
	}

	if err := db.AutoMigrate(
		&userDomain.User{},
		&userDomain.Session{},
		&walletDomain.Transaction{},
		&aviatorDomain.CrashRound{},
		&aviatorDomain.CrashBet{},
		&pokerDomain.GameSession{},
	); err != nil {
		logger.FatalGlobal().Err(err).Msg("failed to migrate database")
	}
	logger.InfoGlobal().Msg("database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.User.Redis.Host, cfg.User.Redis.Port),
	})
	defer rdb.Close()
	logger.InfoGlobal().Msg("redis connected")

	// 3. Initialize Modules

	// User module
	userRepository := userRepo.NewUserRepository(db)
	sessionRepo := userRepo.NewSessionRepository(db)
	userUC := userUseCase.NewUserUseCase(userRepository, sessionRepo, cfg.User.JWT.Secret, cfg.User.JWT.Duration)
	userSvc := userLocal.NewHandler(userUC)
	logger.InfoGlobal().Msg("user module initialized")

	// Wallet module
	ledgerRepo := walletDB.NewLedgerRepository(db)
	walletSvc := walletUseCase.NewWalletUseCase(ledgerRepo, 100000, 24*time.Hour)
	logger.InfoGlobal().Msg("wallet module initialized")

	// Gateway manager first so the engines have a broadcast surface.
	wsManager := ws.NewManager(cfg.Gateway.WebSocket)
	gatewaySvc := gatewayLocal.NewHandler(wsManager)

	// Aviator module
	aviatorRepo := aviatorDB.NewRoundRepository(db)
	aviatorEngine := aviatorMachine.NewEngine(cfg.Aviator, walletSvc, gatewaySvc, aviatorRepo)
	aviatorUC := aviatorUseCase.NewAviatorUseCase(aviatorEngine, gatewaySvc)

	// Coinflip module
	coinflipHistory := coinflipRedis.NewHistoryRepository(rdb)
	coinflipEngine := coinflipMachine.NewEngine(cfg.Coinflip, walletSvc, gatewaySvc, coinflipHistory)
	coinflipUC := coinflipUseCase.NewCoinflipUseCase(coinflipEngine, gatewaySvc)

	// Poker module
	pokerSessions := pokerDB.NewSessionRepository(db)
	pokerUC := pokerUseCase.NewPokerUseCase(cfg.Poker, walletSvc, gatewaySvc, pokerSessions)

	// Dice module (stateless, REST only)
	diceUC := diceUseCase.NewDiceUseCase(walletSvc, 0.05)
	diceHandler := diceHttp.NewHandler(diceUC)

	// Gateway routing
	gatewayUC := gatewayUseCase.NewGatewayUseCase(wsManager, gatewaySvc, aviatorUC, coinflipUC, pokerUC)
	wsManager.OnDisconnect(gatewayUC.HandleDisconnect)
	go wsManager.Run()
	logger.InfoGlobal().Msg("game modules initialized")

	// Start the round engines.
	var wg sync.WaitGroup
	engineCtx := context.Background()
	wg.Add(2)
	go func() {
		defer wg.Done()
		aviatorEngine.Start(engineCtx)
	}()
	go func() {
		defer wg.Done()
		coinflipEngine.Start(engineCtx)
	}()

	// 4. HTTP Servers

	// Gateway server (WebSocket) on 8081
	gatewayHandler := gatewayHttp.NewHandler(gatewayUC, wsManager, userSvc)
	gatewayRouter := gatewayHttp.NewServer(gatewayHandler)

	// Account API (REST) on 8082, with the dice endpoint behind the same auth
	userHandler := userHttp.NewHandler(userUC, walletSvc)
	userServer := userHttp.NewServer(userHandler, cfg.User.Server.Port)
	diceHandler.RegisterRoutes(userServer.Engine().Group("/api/dice"), userHandler.AuthMiddleware())

	gatewaySrv := &http.Server{
		Addr:    ":" + cfg.Gateway.Server.Port,
		Handler: gatewayRouter,
	}
	userSrv := &http.Server{
		Addr:    ":" + cfg.User.Server.Port,
		Handler: userServer.Engine(),
	}

	logger.InfoGlobal().
		Str("gateway_port", cfg.Gateway.Server.Port).
		Str("user_http_port", cfg.User.Server.Port).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws?token=YOUR_TOKEN", cfg.Gateway.Server.Port)).
		Str("user_api_url", fmt.Sprintf("http://localhost:%s/api/users", cfg.User.Server.Port)).
		Msg("casino monolith running")

	go func() {
		if err := gatewaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("gateway server failed")
		}
	}()

	go func() {
		if err := userSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("user HTTP server failed")
		}
	}()

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("shutting down servers")

	// Stop accepting new requests first.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gatewaySrv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("gateway server forced to shutdown")
	}
	if err := userSrv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("user HTTP server forced to shutdown")
	}

	// Let the round engines finish their current round.
	logger.InfoGlobal().Msg("waiting for current rounds to finish")
	aviatorEngine.Stop()
	coinflipEngine.Stop()
	wg.Wait()
	pokerUC.Stop()

	logger.InfoGlobal().Msg("closing all websocket connections")
	wsManager.Shutdown()

	logger.InfoGlobal().Msg("server exited properly")
}
