package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"example.com/flashfeature"
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/flashsim"
)

func main() {
	fmt.Println("flashfeature demo starting (REPL mode)…")

	cfg := config.FromEnv(config.Default())
	cfg.MaxFeatures = 8
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dev := flashsim.New(cfg)
	logSink := device.NewLogSink("flashfeature-demo")
	alloc := feature.New(dev, cfg, logSink)

	fmt.Printf("Reserved region: [0x%08x, 0x%08x), %d slots.\n", cfg.KFStart, cfg.KFEnd, cfg.MaxFeatures)
	fmt.Println("Type commands like:")
	fmt.Println("  install <rom_size> <ram_size>   - allocate a new feature")
	fmt.Println("  list                            - enumerate installed features")
	fmt.Println("  free <handle>                   - uninstall a feature")
	fmt.Println("  copy <handle> <hex bytes>        - stream hex-encoded bytes into a feature's ROM")
	fmt.Println("  flush                           - commit any pending partial page")
	fmt.Println("  help                            - show this help")
	fmt.Println("  exit                            - quit")
	fmt.Println()

	runREPL(alloc)
}

func runREPL(alloc *feature.Allocator) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("flashfeature> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("\nExiting.")
				return
			}
			fmt.Println("Read error:", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if handleCommand(line, alloc) {
			return
		}
	}
}

// handleCommand dispatches a single REPL line. Returns true if the REPL
// should exit.
func handleCommand(line string, alloc *feature.Allocator) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case "exit", "quit":
		fmt.Println("Bye.")
		return true

	case "help":
		fmt.Println("Commands: install <rom> <ram> | list | free <handle> | copy <handle> <hex> | flush | exit")
		return false

	case "install":
		if len(parts) != 3 {
			fmt.Println("usage: install <rom_size> <ram_size>")
			return false
		}
		rom, err1 := strconv.ParseUint(parts[1], 10, 32)
		ram, err2 := strconv.ParseUint(parts[2], 10, 32)
		if err1 != nil || err2 != nil {
			fmt.Println("sizes must be unsigned integers")
			return false
		}
		handle := alloc.AllocateFeature(uint32(rom), uint32(ram))
		switch {
		case handle < 0:
			fmt.Println("rejected: configuration or size pre-check failed")
		case handle == 0:
			fmt.Println("failed: no capacity or device error")
		default:
			fmt.Printf("installed: handle=0x%08x\n", handle)
		}

	case "list":
		count := alloc.AllocatedFeaturesCount()
		fmt.Printf("%d installed feature(s):\n", count)
		for i := uint32(0); i < count; i++ {
			h := alloc.GetFeatureHandle(i)
			romAddr, _ := alloc.FeatureAddressROM(h)
			ramAddr, _ := alloc.FeatureAddressRAM(h)
			fmt.Printf("  [%d] handle=0x%08x rom=0x%08x ram=0x%08x\n", i, h, romAddr, ramAddr)
		}

	case "free":
		if len(parts) != 2 {
			fmt.Println("usage: free <handle>")
			return false
		}
		h, err := strconv.ParseUint(parts[1], 0, 32)
		if err != nil {
			fmt.Println("handle must be an integer")
			return false
		}
		alloc.FreeFeature(uint32(h))
		fmt.Println("done")

	case "copy":
		if len(parts) != 3 {
			fmt.Println("usage: copy <handle> <hex bytes>")
			return false
		}
		h, err := strconv.ParseUint(parts[1], 0, 32)
		if err != nil {
			fmt.Println("handle must be an integer")
			return false
		}
		data, err := hex.DecodeString(parts[2])
		if err != nil {
			fmt.Println("bytes must be hex-encoded:", err)
			return false
		}
		romAddr, ok := alloc.FeatureAddressROM(uint32(h))
		if !ok {
			fmt.Println("unknown handle")
			return false
		}
		if err := alloc.CopyToROM(romAddr, data); err != nil {
			fmt.Println("ERROR:", err)
			return false
		}
		fmt.Println("OK")

	case "flush":
		if err := alloc.FlushCopyToROM(); err != nil {
			fmt.Println("ERROR:", err)
			return false
		}
		fmt.Println("OK")

	default:
		fmt.Println("unknown command, type 'help'")
	}
	return false
}
