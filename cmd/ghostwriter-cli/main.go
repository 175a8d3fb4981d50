package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/ghostwriter-web/go-ghostwriter/internal/configparser"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/document"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/render"
)

func main() {
	templatePath := flag.String("template", "", "template file to render")
	configPath := flag.String("config", "", "context file (toml, yaml, csv); empty context if omitted")
	formatType := flag.Int("format", int(render.DefaultFormatType), "format type 0-4")
	lenient := flag.Bool("lenient", false, "render absent context names as empty instead of failing")
	checkOnly := flag.Bool("check", false, "validate the template and exit without rendering")
	output := flag.String("output", "", "output file (stdout if empty)")
	flag.Parse()

	ctx := context.Background()

	path := strings.TrimSpace(*templatePath)
	if path == "" {
		prompt := &survey.Input{Message: "Template file:"}
		if err := survey.AskOne(prompt, &path, survey.WithValidator(survey.Required)); err != nil {
			log.Fatalf("Failed to read template path: %v", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read template: %v", err)
	}

	doc := document.Load(filepath.Base(path), raw)
	if err := doc.Err(); err != nil {
		log.Fatalf("Template validation failed: %v", err)
	}
	if *checkOnly {
		fmt.Println("Template is valid")
		return
	}

	templateCtx := map[string]any{}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
		templateCtx, err = configparser.NewRegistry().Parse(*configPath, data)
		if err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}
	}

	policy := render.UndefinedStrict
	if *lenient {
		policy = render.UndefinedLenient
	}

	content, err := doc.ApplyContext(ctx, templateCtx,
		render.WithFormatType(render.FormatType(*formatType)),
		render.WithUndefinedPolicy(policy),
	)
	if err != nil {
		log.Fatalf("Failed to render template: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(content), 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Rendered output written to %s\n", *output)
	} else {
		fmt.Println(content)
	}
}
