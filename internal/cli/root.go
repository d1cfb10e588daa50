package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/message"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/settlement"
)

const requestTimeout = 30 * time.Second

// Client is the subset of the treasury API the commands call.
type Client interface {
	Forecast(ctx context.Context, months int) (*forecast.Projection, error)
	BFR(ctx context.Context) (*forecast.BFRReport, error)
	Positions(ctx context.Context) (*settlement.Rebalancing, error)
	RunOverdueAlerts(ctx context.Context) (*app.AlertRunResult, error)
	RunUpcomingDigest(ctx context.Context) (*app.AlertRunResult, error)
}

// ClientFactory builds a Client from the resolved connection settings.
type ClientFactory func(baseURL, apiKey string) Client

type runtime struct {
	v         *viper.Viper
	newClient ClientFactory
}

func (r *runtime) client() Client {
	return r.newClient(r.v.GetString("url"), r.v.GetString("api-key"))
}

func (r *runtime) printer() *message.Printer {
	return NewPrinter(r.v.GetString("locale"))
}

func (r *runtime) jsonOutput() bool {
	return r.v.GetBool("json")
}

// NewRootCommand assembles the treasuryctl command tree. Connection settings
// come from flags, falling back to TREASURY_SERVICE_URL and INTERNAL_API_KEY.
func NewRootCommand(newClient ClientFactory) *cobra.Command {
	rt := &runtime{v: viper.New(), newClient: newClient}

	root := &cobra.Command{
		Use:           "treasuryctl",
		Short:         "Treasury reports for the mentoring admin team",
		Long:          "Query cash projections, the working-capital report and founder positions, and trigger alert runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("url", "http://localhost:8080", "Treasury service base URL")
	flags.String("api-key", "", "Internal API key")
	flags.String("locale", "en", "Locale used to format amounts")
	flags.Bool("json", false, "Print raw JSON instead of tables")

	_ = rt.v.BindPFlag("url", flags.Lookup("url"))
	_ = rt.v.BindPFlag("api-key", flags.Lookup("api-key"))
	_ = rt.v.BindPFlag("locale", flags.Lookup("locale"))
	_ = rt.v.BindPFlag("json", flags.Lookup("json"))
	_ = rt.v.BindEnv("url", "TREASURY_SERVICE_URL")
	_ = rt.v.BindEnv("api-key", "INTERNAL_API_KEY")
	_ = rt.v.BindEnv("locale", "TREASURY_LOCALE")

	root.AddCommand(
		newForecastCommand(rt),
		newBFRCommand(rt),
		newPositionsCommand(rt),
		newAlertsCommand(rt),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(newClient ClientFactory) {
	root := NewRootCommand(newClient)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, RenderWarning("error: "+err.Error()))
		os.Exit(1)
	}
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
