// Package reframecmder provides the reframe command, which streams a thought
// record from the gateway and renders it while it is being written.
package reframecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/client"
	"github.com/papercomputeco/thoughtstream/pkg/config"
	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/proxy/header"
)

// clientName is sent as the client attribution header.
const clientName = "thoughtstream-cli"

var reframeFlags = []string{
	config.FlagProxyTarget,
	config.FlagPublishInterval,
	config.FlagResultFields,
}

type reframeCommander struct {
	flags struct {
		proxyTarget  string
		interval     uint
		resultFields string
	}

	model      string
	user       string
	transcript string
	plain      bool
	configDir  string
	debug      bool

	viper *viper.Viper
}

const reframeLongDesc string = `Reframe a thought.

Sends the thought to the thoughtstream gateway and renders the thought
record (title, distortions, reframe) field by field while the model is still
writing it. Output is redrawn in place on a terminal and printed line by line
otherwise.

The finished record ID is remembered so "thoughtstream records get" can
show it again later.

Examples:
  thoughtstream reframe "I always mess up presentations"
  thoughtstream reframe --model gpt-4o-mini "Nobody replied, they must hate me"
  echo "I failed the exam" | thoughtstream reframe -`

const reframeShortDesc string = "Stream a reframed thought record"

func NewReframeCmd() *cobra.Command {
	cmder := &reframeCommander{}

	cmd := &cobra.Command{
		Use:   "reframe <thought>",
		Short: reframeShortDesc,
		Long:  reframeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, reframeFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), prompt, cmd.OutOrStdout())
		},
	}

	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagProxyTarget, &cmder.flags.proxyTarget)
	config.AddUintFlag(cmd, fs, config.FlagPublishInterval, &cmder.flags.interval)
	config.AddStringFlag(cmd, fs, config.FlagResultFields, &cmder.flags.resultFields)
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model name (default: the gateway's model)")
	cmd.Flags().StringVar(&cmder.user, "user", os.Getenv("USER"), "User name sent for attribution")
	cmd.Flags().StringVar(&cmder.transcript, "transcript", "", "Write the raw event stream to this file")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print plain lines even on a terminal")

	return cmd
}

// readPrompt joins the arguments into one thought. A single "-" reads the
// thought from in.
func readPrompt(args []string, in io.Reader) (string, error) {
	prompt := strings.Join(args, " ")
	if prompt == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading thought from stdin: %w", err)
		}
		prompt = string(b)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("thought must not be empty")
	}
	return prompt, nil
}

func (c *reframeCommander) run(ctx context.Context, prompt string, out io.Writer) error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithFormat(logger.FormatPretty), logger.WithWriter(os.Stderr))
	cfg, err := config.Resolve(c.viper)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	redOpts := []reducer.Option{
		reducer.WithInterval(time.Duration(cfg.Stream.PublishIntervalMs) * time.Millisecond),
	}
	if len(cfg.Stream.ResultFields) > 0 {
		redOpts = append(redOpts, reducer.WithResultFields(cfg.Stream.ResultFields...))
	}

	opts := []client.Option{
		client.WithLogger(log),
		client.WithReducerOptions(redOpts...),
	}

	if c.transcript != "" {
		f, err := os.Create(c.transcript)
		if err != nil {
			return fmt.Errorf("creating transcript: %w", err)
		}
		defer f.Close()
		opts = append(opts, client.WithTranscript(f))
	}

	r := newRenderer(out, !c.plain && cliui.IsTerminal(out))
	cl := client.New(cfg.Client.ProxyTarget, opts...)

	rec, err := cl.Stream(ctx, client.Request{
		Prompt: prompt,
		Model:  c.model,
		Attribution: header.Attribution{
			User:   c.user,
			Client: clientName,
		},
	}, reducer.NewSeed(), r)
	if err != nil {
		return err
	}
	r.Finish(rec)

	if err := dotdir.NewManager().SaveLastRecord(&dotdir.LastRecord{
		ID:        rec.ID,
		Prompt:    prompt,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt,
	}, c.configDir); err != nil {
		log.Warn("could not remember last record", "err", err)
	}

	if rec.Status == reducer.StatusError {
		return fmt.Errorf("record %s failed: %s", rec.ID, rec.Error)
	}
	return nil
}
