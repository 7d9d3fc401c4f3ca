package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cppla/frcomments/config"
	"github.com/cppla/frcomments/repository"
	"github.com/cppla/frcomments/routes"
	"github.com/cppla/frcomments/services"
	"github.com/cppla/frcomments/utils"
)

func main() {
	cfg := config.Load()

	// `frcomments token <email>` prints a bearer token for operators and scripts
	if len(os.Args) == 3 && os.Args[1] == "token" {
		token, err := utils.GenerateToken(os.Args[2], 24*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(&repository.CommentRow{})

	repo := repository.NewCommentRepository(db)
	cache := utils.NewRedisCache(utils.GetRedis())
	svc := services.NewCommentService(repo, cache, time.Duration(cfg.CommentCacheTTLSec)*time.Second, utils.Logger)

	r := routes.SetupRouter(svc)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
