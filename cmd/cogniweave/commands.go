package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogniweave/cogniweave/internal/api"
	"github.com/cogniweave/cogniweave/internal/article"
	"github.com/cogniweave/cogniweave/internal/config"
	"github.com/cogniweave/cogniweave/internal/profile"
	"github.com/cogniweave/cogniweave/internal/storage"
	"github.com/cogniweave/cogniweave/internal/transform"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- derive / onboard ---

func addAnswerFlags(cmd *cobra.Command) {
	cmd.Flags().String("answers", "", "questionnaire answers as a JSON file (- for stdin)")
	cmd.Flags().String("reading-style", "", "short-paragraphs, bullet-points, single-sentences or standard")
	cmd.Flags().String("distractions", "", "ads-images, sidebars, animations or minimal")
	cmd.Flags().String("complex-topics", "", "analogies, summaries, step-by-step or detailed")
	cmd.Flags().String("environment", "", "preferred learning environment")
	cmd.Flags().String("time", "", "time preference, e.g. short-bursts")
	cmd.Flags().StringArray("need", nil, "additional need label (repeatable)")
	cmd.Flags().StringArray("challenge", nil, "focus challenge label (repeatable)")
}

// readAnswers builds questionnaire answers from --answers or the individual
// answer flags. The two sources are exclusive.
func readAnswers(cmd *cobra.Command) (profile.Answers, error) {
	var a profile.Answers

	path, _ := cmd.Flags().GetString("answers")
	if path != "" {
		for _, name := range []string{"reading-style", "distractions", "complex-topics", "environment", "time", "need", "challenge"} {
			if cmd.Flags().Changed(name) {
				return a, fmt.Errorf("--answers cannot be combined with --%s", name)
			}
		}

		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return a, fmt.Errorf("reading answers: %w", err)
		}
		if err := json.Unmarshal(data, &a); err != nil {
			return a, fmt.Errorf("invalid answers JSON: %w", err)
		}
		return a, nil
	}

	a.ReadingStyle, _ = cmd.Flags().GetString("reading-style")
	a.Distractions, _ = cmd.Flags().GetString("distractions")
	a.ComplexTopics, _ = cmd.Flags().GetString("complex-topics")
	a.LearningEnvironment, _ = cmd.Flags().GetString("environment")
	a.TimePreference, _ = cmd.Flags().GetString("time")
	a.AdditionalNeeds, _ = cmd.Flags().GetStringArray("need")
	a.FocusChallenges, _ = cmd.Flags().GetStringArray("challenge")
	return a, nil
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a profile from questionnaire answers without storing it",
	Long: `Derive a profile from questionnaire answers without storing it.

Runs locally; the server does not need to be running.

Examples:
  cogniweave derive --reading-style bullet-points --complex-topics analogies
  cogniweave derive --answers answers.json
  cogniweave derive --need "Larger font sizes" --challenge "Difficulty with complex vocabulary"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, err := readAnswers(cmd)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), profile.Derive(answers))
	},
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Derive a profile from questionnaire answers and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, err := readAnswers(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/onboarding/generate", answers)
		if err != nil {
			return err
		}

		var result struct {
			Profile profile.Profile `json:"profile"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if err := printJSON(cmd.OutOrStdout(), result.Profile); err != nil {
			return err
		}
		printSuccess("Profile saved")
		return nil
	},
}

func init() {
	addAnswerFlags(deriveCmd)
	addAnswerFlags(onboardCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the stored profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			if isStatus(err, http.StatusNotFound) {
				return errors.New("no profile stored; run `cogniweave onboard` first")
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

// patchForPath turns a dotted field path and a value into a nested partial
// profile. Values that parse as JSON keep their type; anything else is a
// string.
func patchForPath(path, value string) (map[string]any, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid field path %q", path)
		}
	}

	var v any = value
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		v = decoded
	}

	for i := len(parts) - 1; i >= 0; i-- {
		v = map[string]any{parts[i]: v}
	}
	return v.(map[string]any), nil
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field.path> <value>",
	Short: "Set a single profile field",
	Long: `Set a single profile field.

Examples:
  cogniweave profile set preferences.fontSize 20
  cogniweave profile set simplification.useAnalogies true
  cogniweave profile set text.vocabulary.simplificationLevel basic`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		patch, err := patchForPath(key, value)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/profile", patch)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open profile JSON in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "cogniweave-profile-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		if !json.Valid(edited) {
			return errors.New("edited profile is not valid JSON")
		}

		putResp, err := client.put(cmd.Context(), "/profile", json.RawMessage(edited))
		if err != nil {
			return err
		}
		if err := decodeJSON(putResp, nil); err != nil {
			return err
		}

		printSuccess("Profile updated")
		return nil
	},
}

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the stored profile with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/profile/reset", nil)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Profile reset to defaults")
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileResetCmd)
}

// --- articles ---

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Browse the article library",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/articles")
		if err != nil {
			return err
		}

		var list []article.Summary
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range list {
			fmt.Fprintf(out, "%s  %3d ¶  %s\n", colorize(colorCyan, s.ID), s.Paragraphs, s.Title)
		}
		return nil
	},
}

var articlesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an article's original text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/articles/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var a article.Article
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}

		filter, err := storedDistractionFilter(cmd, client)
		if err != nil {
			printWarning("could not read profile, showing article unfiltered: %v", err)
		}
		a = filterDistractions(a, filter)

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, a)
		}
		fmt.Fprintln(out, colorize(colorBold, a.Title))
		fmt.Fprintln(out)
		fmt.Fprintln(out, a.Content)
		if a.Sidebar != "" {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%s %s\n", colorize(colorYellow, "Sidebar:"), a.Sidebar)
		}
		for _, img := range a.Images {
			fmt.Fprintf(out, "%s %s\n", colorize(colorYellow, "Image:"), img)
		}
		return nil
	},
}

// storedDistractionFilter returns the stored profile's distraction filter.
// No stored profile means no filtering.
func storedDistractionFilter(cmd *cobra.Command, client *apiClient) (profile.DistractionFilter, error) {
	resp, err := client.get(cmd.Context(), "/profile")
	if err != nil {
		return profile.DistractionFilter{}, err
	}
	var p profile.Profile
	if err := decodeJSON(resp, &p); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return profile.DistractionFilter{}, nil
		}
		return profile.DistractionFilter{}, err
	}
	return p.Visuals.DistractionFilter, nil
}

// filterDistractions drops the sidebar and images when the filter is on.
func filterDistractions(a article.Article, f profile.DistractionFilter) article.Article {
	if f.Enabled {
		a.Sidebar = ""
		a.Images = nil
	}
	return a
}

func init() {
	articlesShowCmd.Flags().Bool("json", false, "print the raw article JSON")
	articlesCmd.AddCommand(articlesListCmd)
	articlesCmd.AddCommand(articlesShowCmd)
}

// --- transform ---

var transformCmd = &cobra.Command{
	Use:   "transform [article-id]",
	Short: "Transform an article with the stored profile",
	Long: `Transform an article with the stored profile.

Library articles are transformed by the server and recorded in history.
Local files are loaded here and sent for a stateless transform.

Examples:
  cogniweave transform demo
  cogniweave transform --file ./notes.md
  cogniweave transform demo --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")

		if (file == "") == (len(args) == 0) {
			return errors.New("provide either an article id or --file")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var (
			res      transform.Result
			record   any
			recordID string
		)
		if file != "" {
			res, err = transformFile(cmd, client, file)
			if err != nil {
				return err
			}
			record = res
		} else {
			resp, err := client.post(cmd.Context(), "/articles/"+url.PathEscape(args[0])+"/transform", nil)
			if err != nil {
				return err
			}
			var out api.ArticleTransform
			if err := decodeJSON(resp, &out); err != nil {
				if isStatus(err, http.StatusNotFound) && strings.Contains(err.Error(), "No profile stored") {
					return errors.New("no profile stored; run `cogniweave onboard` first")
				}
				return err
			}
			res, record, recordID = out.Result, out, out.ID
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, record)
		}
		rendered, err := renderMarkdown(resultMarkdown(res))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(out, rendered); err != nil {
			return err
		}
		if recordID != "" {
			printSuccess("Recorded transform %s", shortID(recordID))
		}
		return nil
	},
}

func transformFile(cmd *cobra.Command, client *apiClient, path string) (transform.Result, error) {
	a, err := article.LoadFile(path)
	if err != nil {
		return transform.Result{}, err
	}

	resp, err := client.get(cmd.Context(), "/profile")
	if err != nil {
		return transform.Result{}, err
	}
	var p json.RawMessage
	if err := decodeJSON(resp, &p); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return transform.Result{}, errors.New("no profile stored; run `cogniweave onboard` first")
		}
		return transform.Result{}, err
	}

	var req api.TransformRequest
	req.Content.Title = a.Title
	req.Content.Content = a.Content
	req.Content.Sidebar = a.Sidebar
	req.Content.Images = a.Images
	req.Profile = p

	resp, err = client.post(cmd.Context(), "/api/transform-content", req)
	if err != nil {
		return transform.Result{}, err
	}
	var res transform.Result
	if err := decodeJSON(resp, &res); err != nil {
		return transform.Result{}, err
	}
	return res, nil
}

func init() {
	transformCmd.Flags().String("file", "", "transform a local .txt, .md, .html or .pdf file")
	transformCmd.Flags().Bool("json", false, "print the raw result JSON")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage transform history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent transforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/transforms?limit=%d&offset=%d", limit, offset))
		if err != nil {
			return err
		}

		var records []storage.TransformRecord
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No transforms found.")
			return nil
		}

		for _, r := range records {
			fmt.Fprintf(out, "%s  %s  %-12s %d chunks, %d terms  %s\n",
				colorize(colorCyan, r.ID),
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.ArticleID,
				r.ChunkCount,
				r.TermCount,
				r.Title,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single transform record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/transforms/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var rec storage.TransformRecord
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transform record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/transforms/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Deleted transform %s", shortID(args[0]))
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of transforms to list")
	historyListCmd.Flags().Int("offset", 0, "number of transforms to skip")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
