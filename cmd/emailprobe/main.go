// Command emailprobe checks whether email addresses are deliverable and
// prints one JSON record per address.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using warning")
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	v, err := emailprobe.New(cfg.options(log))
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}

	emails := cfg.Emails
	if len(emails) == 0 {
		fmt.Fprint(stdout, "Enter email to verify: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && line == "" {
			log.WithError(err).Error("read email")
			return 1
		}
		emails = []string{strings.TrimSpace(line)}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	for _, email := range emails {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		result := v.Verify(ctx, email)
		cancel()
		if err := enc.Encode(result); err != nil {
			log.WithError(err).Error("write result")
			return 1
		}
	}
	return 0
}
