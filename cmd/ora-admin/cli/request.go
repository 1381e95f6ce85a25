package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/internal/logx"
	"github.com/r9s-ai/open-resource-api/internal/server"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/query"
	"github.com/r9s-ai/open-resource-api/pkg/validate"
)

type requestOptions struct {
	types      typesDirOptions
	method     string
	dataPath   string
	seeds      []string
	accept     string
	label      bool
	extensions []string
	color      bool
}

func newRequestCmd() *cobra.Command {
	opts := requestOptions{method: "GET", accept: pipeline.MediaType, color: logx.ColorEnabled()}
	cmd := &cobra.Command{
		Use:   "request <path>",
		Short: "Run one request through the pipeline against an in-memory store",
		Example: "  ora-admin request --seed people.json /people/1?include=friends\n" +
			"  ora-admin request -X POST -d new.json /people",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runRequest(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), res, opts.color)
		},
	}
	fs := cmd.Flags()
	addTypesDirFlags(cmd, &opts.types)
	fs.StringVarP(&opts.method, "method", "X", "GET", "request method")
	fs.StringVarP(&opts.dataPath, "data", "d", "", "request body file (\"-\" for stdin)")
	fs.StringArrayVar(&opts.seeds, "seed", nil, "document whose primary data is stored before the request (repeatable)")
	fs.StringVar(&opts.accept, "accept", pipeline.MediaType, "Accept header")
	fs.BoolVar(&opts.label, "label", false, "treat the id segment as a label")
	fs.StringSliceVar(&opts.extensions, "ext", nil, "supported extension URIs")
	fs.BoolVar(&opts.color, "color", opts.color, "colorize output")
	return cmd
}

func runRequest(ctx context.Context, opts requestOptions, rawPath string) (*pipeline.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reg, _, err := loadRegistry(opts.types)
	if err != nil {
		return nil, err
	}
	store := query.NewStore()
	for _, p := range opts.seeds {
		if err := seedStore(store, p); err != nil {
			return nil, err
		}
	}

	cfg := &config.Config{}
	cfg.API.SupportedExtensions = opts.extensions
	ctl, err := server.NewController(cfg, reg, store)
	if err != nil {
		return nil, err
	}

	req, err := buildRequest(opts, rawPath)
	if err != nil {
		return nil, err
	}
	return ctl.Handle(ctx, req, nil, nil), nil
}

// buildRequest maps "/type[/id[/relationships/rel]][?query]" onto a
// pipeline request.
func buildRequest(opts requestOptions, rawPath string) (*pipeline.Request, error) {
	u, err := url.Parse(strings.TrimSpace(rawPath))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", rawPath, err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	req := &pipeline.Request{
		Method:     pipeline.ParseMethod(opts.method),
		AllowLabel: opts.label,
		Accept:     opts.accept,
		URI:        u.RequestURI(),
		Query:      u.Query(),
	}
	switch {
	case len(segs) == 1 && segs[0] != "":
		req.Type = segs[0]
	case len(segs) == 2:
		req.Type, req.ID = segs[0], pipeline.ParseIDs(segs[1])
	case len(segs) == 4 && segs[2] == "relationships":
		req.Type, req.ID = segs[0], pipeline.ParseIDs(segs[1])
		req.AboutRelationship, req.Relationship = true, segs[3]
	default:
		return nil, fmt.Errorf("unsupported path %q: want /type, /type/id or /type/id/relationships/rel", u.Path)
	}

	if opts.dataPath != "" {
		raw, err := readInput(opts.dataPath)
		if err != nil {
			return nil, err
		}
		req.Body = document.NewRequestBody(raw)
		req.ContentType = pipeline.MediaType
	}
	return req, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(path) // #nosec G304 -- admin tool reads user-provided file.
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return b, nil
}

func seedStore(store *query.Store, path string) error {
	raw, err := readInput(path)
	if err != nil {
		return err
	}
	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return fmt.Errorf("seed %q: missing data", path)
	}
	primary, err := validate.New().ParseRequestPrimary(json.RawMessage(data.Raw), false)
	if err != nil {
		return fmt.Errorf("seed %q: %w", path, err)
	}
	for _, r := range primary.Resources() {
		if _, err := store.Insert(r); err != nil {
			return fmt.Errorf("seed %q: %s %q: %w", path, r.Type, r.ID, err)
		}
	}
	return nil
}

func printResponse(w io.Writer, res *pipeline.Response, color bool) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("HTTP "+logx.ColorizeStatusWith(res.Status, color)) + "\n")
	if res.ContentType != "" {
		b.WriteString(faintStyle.Render("Content-Type: "+res.ContentType) + "\n")
	}
	for _, k := range sortedKeys(res.Headers) {
		for _, v := range res.Headers[k] {
			b.WriteString(faintStyle.Render(k+": "+v) + "\n")
		}
	}
	if res.Body != nil {
		raw, err := json.Marshal(res.Body)
		if err != nil {
			return fmt.Errorf("render body: %w", err)
		}
		raw = pretty.Pretty(raw)
		if color {
			raw = pretty.Color(raw, nil)
		}
		b.WriteString("\n")
		b.Write(raw)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
