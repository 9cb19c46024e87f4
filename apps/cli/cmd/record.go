package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/core/config"
	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/fixture"
	"github.com/abdul-hamid-achik/hncheck/packages/hnapi"
	"github.com/spf13/cobra"
)

var (
	recordBaseURLFlag string
	recordDirFlag     string
	recordItemsFlag   int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record upstream responses as fixtures",
	Long: `Fetch the top stories and the first few items and save them under
__fixtures__ so later runs can compare response shapes against them.

The body of the suffixless item request checked by hn-06 is recorded too.

Examples:
  hncheck record
  hncheck record --items 10 --fixtures-dir testdata
  hncheck record --base-url http://localhost:3000/v0`,
	Args: cobra.NoArgs,
	RunE: recordCommand,
}

func init() {
	recordCmd.Flags().StringVar(&recordBaseURLFlag, "base-url", "", "Upstream base URL (env: HNCHECK_BASE_URL or BASE_URL)")
	recordCmd.Flags().StringVar(&recordDirFlag, "fixtures-dir", "", "Directory holding __fixtures__ (env: HNCHECK_FIXTURES_DIR)")
	recordCmd.Flags().IntVar(&recordItemsFlag, "items", 5, "Number of top items to record")
}

func recordCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	envCfg, err := config.FromEnv()
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	cfg = cfg.Merge(envCfg).Merge(&config.Config{
		BaseURL:     recordBaseURLFlag,
		FixturesDir: recordDirFlag,
	})

	scenarioEnv, err := runner.NewEnv(cfg, logger)
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	store := fixture.NewStore(cfg.FixturesDir, true)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	n, err := recordFixtures(ctx, scenarioEnv.Gateway, store, recordItemsFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d fixtures in %s\n", n, store.Dir())
	return nil
}

// recordFixtures saves the top-stories list in both encodings, the first
// limit items and the suffixless body of the top item.
func recordFixtures(ctx context.Context, gw *hnapi.Gateway, store *fixture.Store, limit int) (int, error) {
	count := 0
	save := func(name, url string, body []byte) error {
		err := store.Record(&fixture.Fixture{
			Name:       name,
			URL:        url,
			StatusCode: 200,
			Body:       body,
		})
		if err == nil {
			count++
		}
		return err
	}

	compact, err := gw.FetchTopStories(ctx, false)
	if err != nil {
		return count, err
	}
	if err := save("topstories", gw.TopStoriesURL(false), compact); err != nil {
		return count, err
	}
	pretty, err := gw.FetchTopStories(ctx, true)
	if err != nil {
		return count, err
	}
	if err := save("topstories-pretty", gw.TopStoriesURL(true), pretty); err != nil {
		return count, err
	}

	ids, err := hnapi.DecodeIDs(compact)
	if err != nil {
		return count, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	for _, id := range ids {
		ref := strconv.FormatInt(id, 10)
		resp, err := gw.FetchItemRaw(ctx, ref, true)
		if err != nil {
			return count, err
		}
		if err := save("item-"+ref, resp.URL, resp.Body); err != nil {
			return count, err
		}
	}

	if len(ids) > 0 {
		resp, err := gw.FetchItemRaw(ctx, strconv.FormatInt(ids[0], 10), false)
		if err != nil {
			return count, err
		}
		if err := save(runner.NoSuffixFixture, resp.URL, resp.Body); err != nil {
			return count, err
		}
	}
	return count, nil
}
