/*
SimBase - In-memory similarity engine with per-basis vector storage and
top-K recommendation maintenance.
Copyright (C) 2025 Podcopic Labs

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Podcopic-Labs/simbase/internal/engine"
	"github.com/Podcopic-Labs/simbase/internal/simconfig"
)

const (
	green = "\033[32m"
	cyan  = "\033[36m"
	reset = "\033[0m"
)

func main() {
	configPath := flag.String("config", "simbase.yaml", "path to the YAML configuration file")
	readerWorkers := flag.Int("reader-workers", 64, "reader pool size, must be in [53,83]")
	flag.Parse()

	cfg, err := simconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("load config %q: %v", *configPath, err)
	}

	eng, err := engine.New(cfg, *readerWorkers)
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}

	printStartupBanner()

	if err := eng.Load(); err != nil {
		log.Fatalf("load dumps from %q: %v", cfg.SavePath, err)
	}
	log.Printf("loaded bases from %q", cfg.SavePath)

	eng.StartCron()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Printf("shutting down, saving all bases to %q", cfg.SavePath)
	if err := eng.Save(); err != nil {
		log.Printf("save on shutdown: %v", err)
	}
	eng.Close()
}

func printStartupBanner() {
	log.SetFlags(log.LstdFlags)
	os.Stdout.WriteString(green + `
 ____  _           ____
/ ___|(_)_ __ ___  | __ )  __ _ ___  ___
\___ \| | '_ ' _ \ |  _ \ / _' / __|/ _ \
 ___) | | | | | | || |_) | (_| \__ \  __/
|____/|_|_| |_| |_||____/ \__,_|___/\___|
` + cyan + "Key Catalog | Per-basis Writers | Top-K Recommendations" + reset + "\n")
}
