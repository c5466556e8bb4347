// Command deskctl previews and saves email templates against a SoloDesk API.
//
//	deskctl preview [-f fields.json] [-o out.html] <type>
//	deskctl save [-f fields.json] <type>
//	deskctl client [-company name] [-phone number] [-welcome] <name> <email> [file...]
//
// The API is located with SOLODESK_API_URL and authenticated with
// SOLODESK_TOKEN. SOLODESK_DEMO_MODE=false makes a 404 on save an error.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/apiclient"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/editor"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

const defaultAPIURL = "http://localhost:8080"

var errUsage = errors.New("usage: deskctl <preview|save> [-f fields.json] [-o out.html] <type> | deskctl client [flags] <name> <email> [file...]")

// desk is the part of the API client deskctl uses.
type desk interface {
	editor.Source
	clientAPI
}

// fieldsFile is the JSON shape accepted by -f. It matches the template
// request body, so a file saved from the API can be fed back in.
type fieldsFile struct {
	Subject string `json:"subject"`
	templating.Fields
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := os.Getenv("SOLODESK_API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	demoMode := true
	if raw := os.Getenv("SOLODESK_DEMO_MODE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			log.Fatalf("deskctl: invalid SOLODESK_DEMO_MODE: %v", err)
		}
		demoMode = v
	}
	client := apiclient.New(baseURL, os.Getenv("SOLODESK_TOKEN"), apiclient.WithDemoMode(demoMode))

	if err := run(ctx, client, os.Args[1:], os.Stdout); err != nil {
		log.Printf("deskctl: %v", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, src desk, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]
	if cmd == "client" {
		return runClient(ctx, src, args[1:], stdout)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fieldsPath := fs.String("f", "", "JSON file with the subject and fields to apply")
	outPath := fs.String("o", "", "write the preview to this file instead of stdout")
	if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	t, err := templating.ParseType(fs.Arg(0))
	if err != nil {
		return err
	}

	e, err := editor.Load(ctx, src, t)
	if err != nil {
		return err
	}
	if *fieldsPath != "" {
		if err := applyFields(e, t, *fieldsPath); err != nil {
			return err
		}
	}

	switch cmd {
	case "preview":
		e.SetPreview(true)
		html, err := e.Preview()
		if err != nil {
			return err
		}
		if *outPath == "" {
			_, err = io.WriteString(stdout, html)
			return err
		}
		if err := os.WriteFile(*outPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
		fmt.Fprintf(stdout, "Preview written to %s\n", *outPath)
		return nil
	case "save":
		res, err := e.Save(ctx)
		if err != nil {
			return err
		}
		switch {
		case res.DemoMode:
			fmt.Fprintf(stdout, "Template not persisted (demo mode)\n")
		case res.Created:
			fmt.Fprintf(stdout, "Template created: %s\n", res.Template.ID)
		default:
			fmt.Fprintf(stdout, "Template updated: %s\n", res.Template.ID)
		}
		return nil
	default:
		return errUsage
	}
}

func applyFields(e *editor.Editor, t templating.TemplateType, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fields: %w", err)
	}
	var f fieldsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	s, err := templating.FromFields(t, f.Subject, f.Fields)
	if err != nil {
		return err
	}
	return e.Set(s)
}
