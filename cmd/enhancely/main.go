package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/enhancely/enhancely-go/internal/app"
	"github.com/enhancely/enhancely-go/internal/config"
	"github.com/enhancely/enhancely-go/internal/logger"
	"github.com/enhancely/enhancely-go/pkg/enhancely"
	"github.com/enhancely/enhancely-go/pkg/inject"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "enhancely: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("enhancely", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	pageURL := flags.String("url", "", "page URL to request JSON-LD for")
	etag := flags.String("etag", "", "ETag from a previous response (sent as If-None-Match)")
	injectFile := flags.String("inject", "", "HTML file to inject the JSON-LD into; the result is written to stdout")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pageURL == "" {
		return errors.New("--url is required")
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.InitTo(cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := app.NewAPIClient(cfg, log)
	resp, err := client.Fetch(ctx, *pageURL, *etag)
	if err != nil {
		return err
	}

	if *injectFile != "" {
		return writeInjected(out, *injectFile, resp)
	}
	return writeSummary(out, *pageURL, resp)
}

func writeSummary(out io.Writer, pageURL string, resp enhancely.Response) error {
	fmt.Fprintf(out, "url:    %s\n", enhancely.NormalizeURL(pageURL))
	fmt.Fprintf(out, "state:  %s (%d)\n", resp.State(), resp.StatusCode())
	if etag := resp.ETag(); etag != "" {
		fmt.Fprintf(out, "etag:   %s\n", etag)
	}
	if tag := resp.ScriptTag(); tag != "" {
		fmt.Fprintln(out, tag)
	}
	return nil
}

func writeInjected(out io.Writer, path string, resp enhancely.Response) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read html: %w", err)
	}
	if !resp.Ready() {
		return fmt.Errorf("nothing to inject: response is %s", resp.State())
	}
	html, err := inject.Inject(doc, resp)
	if err != nil {
		return err
	}
	_, err = out.Write(html)
	return err
}
