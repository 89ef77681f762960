package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/vepclient/pkg/output"
	"github.com/3leaps/vepclient/pkg/provider"
)

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>...",
	Short: "Download result files",
	Long: `Download the result file of each finished job to a local directory or
an s3:// prefix. Files are named <job-id>.tsv.

With a single job id, --dest may also name the target file itself.

Examples:
  vepclient results job-42 --dest results/
  vepclient results job-42 --dest results/sample.tsv
  vepclient results job-41 job-42 --dest s3://results-bucket/run7/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResults,
}

var resultsDest string

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().StringVarP(&resultsDest, "dest", "o", ".", "Destination directory, file or s3:// prefix")
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dest, err := provider.ParseLocation(resultsDest)
	if err != nil {
		return invalidArgument("Invalid destination", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	for _, id := range args {
		target := resultTarget(dest, resultsDest, id, len(args) > 1)
		n, err := a.download(ctx, id, target)
		if err != nil {
			return a.fail(ctx, "Failed to download result of "+id, err)
		}
		if a.writer != nil {
			a.check(a.writer.WriteDownload(ctx, &output.DownloadRecord{JobID: id, Dest: target.String(), Bytes: n}))
			continue
		}
		a.printf("%s -> %s (%d bytes)\n", id, target, n)
	}
	return nil
}

// resultTarget is dest itself when it names a file, otherwise
// dest/<id>.tsv.
func resultTarget(dest provider.Location, raw, id string, many bool) provider.Location {
	name := id + ".tsv"
	if many || strings.HasSuffix(raw, "/") || dest.Key == "" {
		return dest.Join(name)
	}
	if dest.Type == provider.ProviderFile {
		if st, err := os.Stat(dest.Key); err == nil && st.IsDir() {
			return dest.Join(name)
		}
	}
	return dest
}

func (a *app) download(ctx context.Context, id string, target provider.Location) (int64, error) {
	body, size, err := a.client.DownloadResult(ctx, id)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	cr := &countingReader{r: body}
	if err := a.resolver.Export(ctx, cr, size, target); err != nil {
		return 0, err
	}
	a.logger.Debug("Result downloaded",
		zap.String("job_id", id),
		zap.String("dest", target.String()),
		zap.Int64("bytes", cr.n))
	return cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
