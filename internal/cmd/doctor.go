package cmd

import (
	"context"
	"fmt"
	"runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/vepclient/internal/config"
	errwrap "github.com/3leaps/vepclient/internal/errors"
	"github.com/3leaps/vepclient/internal/observability"
	"github.com/3leaps/vepclient/pkg/portal"
)

var doctorS3 bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the configuration and the portal connection, and
suggest fixes for common issues.

Examples:
  vepclient doctor        # Config and portal checks
  vepclient doctor --s3   # Also check AWS credentials for s3:// inputs`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorS3, "s3", false, "Run S3 credential checks")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger
	cfg := loadedConfig
	if cfg == nil {
		return invalidArgument("Configuration not loaded", nil)
	}

	log.Info("=== " + binaryName + " doctor ===")
	log.Info("Running diagnostic checks...")

	totalChecks := 3
	if doctorS3 {
		totalChecks = 5
	}
	checkNum := 1
	allChecks := true

	// Check 1: Environment
	log.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s %s/%s", checkNum, totalChecks, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		zap.String("go_version", runtime.Version()))
	checkNum++

	// Check 2: Config
	log.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ portal %s", checkNum, totalChecks, cfg.Portal.BaseURL),
		zap.Duration("poll_interval", cfg.Poll.Interval),
		zap.Float64("rate_limit", cfg.Submit.RateLimit),
		zap.Duration("masks_cache_ttl", cfg.Masks.CacheTTL))
	checkNum++

	// Check 3: Portal
	if err := checkPortal(ctx, cfg); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking portal... ❌ %s", checkNum, totalChecks, portal.StatusText(err)),
			zap.String("portal", cfg.Portal.BaseURL),
			zap.Error(err))
		log.Info("  Set portal.base_url, VEPCLIENT_PORTAL_URL or --portal-url to the portal API root.")
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking portal... ✅ reachable", checkNum, totalChecks))
	}
	checkNum++

	if doctorS3 {
		allChecks = runS3Checks(ctx, cfg, checkNum, totalChecks) && allChecks
	}

	if !allChecks {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
		return errwrap.NewExitError(errwrap.ExitExternalServiceUnavailable, "Diagnostics failed", nil)
	}
	log.Info("✅ All checks passed!")
	return nil
}

// checkPortal fetches the schema, the cheapest read the portal offers.
func checkPortal(ctx context.Context, cfg *config.Config) error {
	client, err := portal.New(portal.Config{
		BaseURL: cfg.Portal.BaseURL,
		Timeout: cfg.Portal.Timeout,
		Logger:  observability.CLILogger,
	})
	if err != nil {
		return err
	}
	_, err = client.GetSchema(ctx)
	return err
}

// runS3Checks checks that AWS credentials resolve for s3:// locations.
func runS3Checks(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) bool {
	log := observability.CLILogger
	log.Info("S3 Checks:")

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.S3.Profile))
	}
	if cfg.S3.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot load AWS config", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot retrieve credentials", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Found credentials", checkNum, totalChecks),
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)))
	checkNum++

	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking credential source... ✅ %s", checkNum, totalChecks, source),
		zap.String("region", awsCfg.Region),
		zap.String("endpoint", cfg.S3.Endpoint))
	return true
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	log := observability.CLILogger
	log.Info("To configure AWS credentials:")
	log.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	log.Info("  2. Set s3.access_key_id and s3.secret_access_key in the vepclient config, or")
	log.Info("  3. Run 'aws configure' and pass the profile as s3.profile")
	log.Info("For S3-compatible storage (MinIO, etc.), also set s3.endpoint.")
}
