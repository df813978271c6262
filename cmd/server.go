package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crmkit/crm-data-apis/auth"
	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/endpoint"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/graphql"
	"github.com/crmkit/crm-data-apis/log"
)

const defaultGraphQLPath = "/graphql"
const defaultRESTPath = "/rest"
const defaultGraphQLPlaygroundPath = "/graphql-playground"

const shutdownTimeout = 10 * time.Second

// Environment variables prefixed with "CRM_API_" can override settings e.g. "CRM_API_SEED_FILE"
const envVarPrefix = "crm_api"

var cfgFile string
var logger log.Logger

var serverCmd = &cobra.Command{
	Use:   os.Args[0] + " --seed-file [FILE] [--start-graphql|--start-rest] [OPTIONS]",
	Short: "GraphQL and REST endpoints for CRM records and rules",
	Args: func(cmd *cobra.Command, args []string) error {
		startGraphQL := viper.GetBool("start-graphql")
		startREST := viper.GetBool("start-rest")
		if !startGraphQL && !startREST {
			return errors.New("at least one endpoint type should be started")
		}

		if len(getStringSlice("hosts")) > 0 && viper.GetString("sql-driver") != "" {
			return errors.New("hosts and sql-driver can not be used together")
		}
		if viper.GetBool("watch-seed") && viper.GetString("seed-file") == "" {
			return errors.New("watch-seed requires a seed file")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		endpoint := createEndpoint(ctx)
		defer endpoint.Close()

		graphqlPort := viper.GetInt("graphql-port")
		restPort := viper.GetInt("rest-port")

		startGraphQL := viper.GetBool("start-graphql")
		startREST := viper.GetBool("start-rest")

		g, gctx := errgroup.WithContext(ctx)

		if graphqlPort == restPort {
			if startGraphQL && startREST && viper.GetString("graphql-path") == viper.GetString("rest-path") {
				logger.Fatal("graphql and rest paths can not be the same when using the same port")
			}

			router := createRouter()
			endpointNames := ""
			if startGraphQL {
				addGraphQLRoutes(router, endpoint)
				endpointNames += "GraphQL"
			}
			if startREST {
				addRESTRoutes(router, endpoint)
				if endpointNames != "" {
					endpointNames += "/"
				}
				endpointNames += "REST"
			}
			serve(gctx, g, router, graphqlPort, endpointNames)
		} else {
			if startGraphQL {
				router := createRouter()
				addGraphQLRoutes(router, endpoint)
				serve(gctx, g, router, graphqlPort, "GraphQL")
			}
			if startREST {
				router := createRouter()
				addRESTRoutes(router, endpoint)
				serve(gctx, g, router, restPort, "REST")
			}
		}

		if viper.GetBool("watch-seed") {
			g.Go(func() error {
				return endpoint.WatchSeed(gctx)
			})
		}

		if err := g.Wait(); err != nil {
			logger.Fatal("server stopped", "error", err)
		}
		logger.Info("server stopped")
	},
}

// Execute start GraphQL/REST endpoints
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}

	logger = log.NewZapLogger(zapLogger)

	flags := serverCmd.PersistentFlags()

	// General endpoint flags
	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.String("seed-file", "", "YAML or JSON file describing the entities and their initial records")
	flags.String("rules-file", "", "YAML or JSON file the rules are loaded from and saved to")
	flags.Bool("watch-seed", false, "reload the entities when the seed file changes")
	flags.StringSliceP("hosts", "t", nil, "Cassandra hosts to keep the records in")
	flags.String("keyspace", "crm", "Cassandra keyspace of the record tables")
	flags.StringP("username", "u", "", "connect with database username")
	flags.StringP("password", "p", "", "database user's password")
	flags.String("sql-driver", "", "keep the records in a SQL database. options: sqlite,pgx")
	flags.String("sql-dsn", "", "data source name of the SQL database")

	flags.String("unknown-operator", filter.NoMatch.String(), "how rules with an unsupported operator evaluate. options: no-match,match-all")
	flags.StringSlice("operations", config.AllOperations.Names(),
		"list of supported write operations. options: RecordUpdate,RuleCreate,RuleUpdate,RuleDelete")
	flags.Bool("request-logging", false, "enable request logging")
	flags.String("user-header", auth.DefaultUserHeader, "request header carrying the acting user")
	flags.Duration("schema-update-interval", endpoint.DefaultSchemaUpdateDuration, "interval used to update the graphql schema")
	flags.String("access-control-allow-origin", "", "Access-Control-Allow-Origin header value")

	// GraphQL specific flags
	flags.Bool("start-graphql", true, "start the GraphQL endpoint")
	flags.String("graphql-path", defaultGraphQLPath, "GraphQL endpoint path")
	flags.Bool("graphql-playground", true, "expose a GraphQL playground route")
	flags.String("graphql-playground-path", defaultGraphQLPlaygroundPath, "path for the GraphQL playground static file")
	flags.Int("graphql-port", 8080, "GraphQL endpoint port")

	// REST specific flags
	flags.Bool("start-rest", false, "start the REST endpoint")
	flags.String("rest-path", defaultRESTPath, "REST endpoint path")
	flags.Int("rest-port", 8080, "REST endpoint port")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func createEndpoint(ctx context.Context) *endpoint.CrmEndpoint {
	cfg := endpoint.NewEndpointConfigWithLogger(logger)

	updateInterval := viper.GetDuration("schema-update-interval")
	if updateInterval <= 0 {
		updateInterval = endpoint.DefaultSchemaUpdateDuration
	}

	supportedOps := getStringSlice("operations")
	ops, err := config.Ops(supportedOps...)
	if err != nil {
		logger.Fatal("invalid supported operation", "operations", supportedOps, "error", err)
	}

	policy, ok := filter.ParseUnknownOperatorPolicy(viper.GetString("unknown-operator"))
	if !ok {
		logger.Fatal("invalid unknown operator policy", "value", viper.GetString("unknown-operator"))
	}

	cfg.
		WithSeedFile(viper.GetString("seed-file")).
		WithRulesFile(viper.GetString("rules-file")).
		WithSupportedOperations(ops).
		WithUnknownOperatorPolicy(policy).
		WithSchemaUpdateInterval(updateInterval)

	if hosts := getStringSlice("hosts"); len(hosts) > 0 {
		cfg.
			WithDbHosts(viper.GetString("keyspace"), hosts...).
			WithDbUsername(viper.GetString("username")).
			WithDbPassword(viper.GetString("password"))
	}
	if driver := viper.GetString("sql-driver"); driver != "" {
		cfg.WithSQL(driver, viper.GetString("sql-dsn"))
	}

	endpoint, err := cfg.NewEndpoint(ctx)
	if err != nil {
		logger.Fatal("unable create new endpoint",
			"error", err)
	}

	logger.Info("endpoint ready",
		"entities", len(endpoint.Catalog().Entities()),
		"operations", ops.String(),
		"unknownOperator", policy.String())
	return endpoint
}

func addGraphQLRoutes(router *httprouter.Router, endpoint *endpoint.CrmEndpoint) {
	rootPath := viper.GetString("graphql-path")

	routes, err := endpoint.RoutesGraphQL(rootPath)
	if err != nil {
		logger.Fatal("unable to generate graphql routes",
			"error", err)
	}

	for _, route := range routes {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}

	if viper.GetBool("graphql-playground") {
		playgroundPath := viper.GetString("graphql-playground-path")
		hostAndPort := fmt.Sprintf("http://localhost:%d", viper.GetInt("graphql-port"))
		logger.Info("get started by visiting the GraphQL playground",
			"url", fmt.Sprintf("%s%s", hostAndPort, playgroundPath))
		route := graphql.PlaygroundRoute(playgroundPath, fmt.Sprintf("%s%s", hostAndPort, rootPath))
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
}

func addRESTRoutes(router *httprouter.Router, endpoint *endpoint.CrmEndpoint) {
	for _, route := range endpoint.RoutesRest(viper.GetString("rest-path")) {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
}

func maybeAddRequestLogging(handler http.Handler) http.Handler {
	if viper.GetBool("request-logging") {
		handler = log.NewLoggingHandler(handler, logger)
	}
	return handler
}

func maybeAddCORS(handler http.Handler) http.Handler {
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		return cors.New(cors.Options{
			AllowedOrigins: getStringSlice("access-control-allow-origin"),
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
			},
			AllowedHeaders: []string{"*"},
		}).Handler(handler)
	}
	return handler
}

func initialize() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file",
				"file", viper.ConfigFileUsed())
		}
	}
}

func createRouter() *httprouter.Router {
	router := httprouter.New()
	// Preflight requests are answered by the CORS handler
	router.HandleOPTIONS = false
	return router
}

func serve(ctx context.Context, g *errgroup.Group, handler http.Handler, port int, endpointNames string) {
	handler = auth.UserHandler(viper.GetString("user-header"), handler)
	handler = maybeAddCORS(maybeAddRequestLogging(handler))
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}

	g.Go(func() error {
		logger.Info("server listening",
			"port", port,
			"type", endpointNames)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("unable to start server on port %d: %w", port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

func getStringSlice(key string) []string {
	value := viper.GetStringSlice(key)
	slice, err := toStringSlice(value)
	if err != nil {
		logger.Fatal("invalid string slice value for setting",
			"error", err,
			"key", key,
			"value", value)
	}
	return slice
}

func toStringSlice(slice []string) ([]string, error) {
	result := make([]string, 0)
	for _, entry := range slice {
		stringReader := strings.NewReader(entry)
		csvReader := csv.NewReader(stringReader)
		split, err := csvReader.Read()
		if err != nil {
			return nil, err
		}
		for _, part := range split {
			if part != "" { // Don't add empty values
				result = append(result, part)
			}
		}
	}
	return result, nil
}
