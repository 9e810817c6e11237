package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"easysql-backend/cmd"
	"easysql-backend/internal/config"
	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/llm"
	"easysql-backend/pkg/api"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"gorm.io/gorm"
)

// console drives an interactive question loop against the same engine the API
// serves. It opens its own session so everything asked here shows up in the
// shared history store.
type console struct {
	db        *gorm.DB
	source    *datasource.Source
	engine    *core.Engine
	sessionId uuid.UUID
	scanner   *bufio.Scanner
}

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(cfg.HistoryURL())
	if err != nil {
		log.Fatalf("error connecting to history database: %v", err)
	}

	targetURL, err := cfg.TargetURL()
	if err != nil {
		log.Fatalf("error resolving datasource: %v", err)
	}

	source, err := datasource.Open(targetURL, cfg.QueryRowLimit, cfg.QueryTimeout)
	if err != nil {
		log.Fatalf("error connecting to datasource: %v", err)
	}
	defer source.Close()

	translator, err := llm.New(ctx, llm.Options{
		Provider:     cfg.LLMProvider,
		Model:        cfg.LLMModel,
		MaxRetries:   cfg.LLMMaxRetries,
		OpenAIKey:    cfg.OpenAIAPIKey,
		AnthropicKey: cfg.AnthropicAPIKey,
		GeminiKey:    cfg.GeminiAPIKey,
		OllamaHost:   cfg.OllamaHost,
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
	})
	if err != nil {
		log.Fatalf("error initializing llm provider: %v", err)
	}

	session, err := database.CreateSession(ctx, db, "console "+time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		log.Fatalf("error creating console session: %v", err)
	}

	c := &console{
		db:        db,
		source:    source,
		engine:    core.NewEngine(db, source, translator, cfg.LLMHistoryLimit),
		sessionId: session.Id,
		scanner:   bufio.NewScanner(os.Stdin),
	}
	c.run(ctx)
}

func (c *console) run(ctx context.Context) {
	color.Cyan("=== EasySQL Console ===")
	fmt.Printf("Connected to %s. Ask a question in plain English, or type \\help for commands.\n", c.source.Engine())

	for {
		fmt.Print("\n> ")
		if !c.scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, `\`) {
			if quit := c.runCommand(ctx, line); quit {
				return
			}
			continue
		}

		c.ask(ctx, line)
	}
}

// runCommand dispatches a backslash command. It reports whether the console
// should exit.
func (c *console) runCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case `\tables`:
		c.showTables(ctx)
	case `\schema`:
		table := ""
		if len(fields) > 1 {
			table = fields[1]
		}
		c.showSchema(ctx, table)
	case `\sample`:
		if len(fields) < 2 {
			color.Red(`usage: \sample <table>`)
			return false
		}
		c.showSample(ctx, fields[1])
	case `\history`:
		c.showHistory(ctx)
	case `\examples`:
		color.Cyan("Try asking:")
		for _, q := range core.ExampleQuestions {
			fmt.Printf("  %s\n", q)
		}
	case `\help`:
		printHelp()
	case `\quit`, `\q`:
		color.Green("Goodbye!")
		return true
	default:
		color.Red(`Unknown command %s. Type \help for the list.`, fields[0])
	}
	return false
}

func printHelp() {
	color.Cyan("Commands:")
	fmt.Println(`  \tables           list tables with row and column counts`)
	fmt.Println(`  \schema [table]   show the schema, optionally for one table`)
	fmt.Println(`  \sample <table>   show a few rows from a table`)
	fmt.Println(`  \history          show the questions asked in this session`)
	fmt.Println(`  \examples         show example questions`)
	fmt.Println(`  \help             show this help`)
	fmt.Println(`  \quit             exit`)
	fmt.Println("\nAnything else is treated as a question about the data.")
}

// ask runs the question pipeline with a confirmation step between SQL
// generation and execution.
func (c *console) ask(ctx context.Context, question string) {
	sql, err := c.engine.GenerateSQL(ctx, c.sessionId, question)
	if err != nil {
		color.Red("%v", err)
		return
	}

	color.Yellow("\nGenerated SQL:")
	fmt.Println(sql)

	if !c.confirm("Run it? [y/N] ") {
		color.Yellow("Skipped.")
		return
	}

	answer, err := c.engine.Execute(ctx, c.sessionId, question, sql)
	if err != nil {
		color.Red("%v", err)
		return
	}

	fmt.Println()
	renderResult(answer.Result)

	rows := "rows"
	if answer.Result.RowCount == 1 {
		rows = "row"
	}
	fmt.Printf("\n%d %s in %dms", answer.Result.RowCount, rows, answer.DurationMs)
	if answer.Result.Truncated {
		color.Yellow(" (truncated)")
	} else {
		fmt.Println()
	}

	color.Cyan("Suggested chart: %s", answer.SuggestedChart)
	renderSummaries(answer.Summary)
}

func (c *console) confirm(prompt string) bool {
	fmt.Print(prompt)
	if !c.scanner.Scan() {
		return false
	}
	reply := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return reply == "y" || reply == "yes"
}

func (c *console) showTables(ctx context.Context) {
	names, err := c.source.Tables(ctx)
	if err != nil {
		color.Red("error listing tables: %v", err)
		return
	}
	if len(names) == 0 {
		fmt.Println("No tables found")
		return
	}

	table := newTable([]string{"TABLE", "ROWS", "COLUMNS"})
	for _, name := range names {
		stats, err := c.source.TableStats(ctx, name)
		if err != nil {
			color.Red("error reading stats for %s: %v", name, err)
			return
		}
		table.Append([]string{name, fmt.Sprintf("%d", stats.RowCount), fmt.Sprintf("%d", stats.ColumnCount)})
	}
	table.Render()
}

func (c *console) showSchema(ctx context.Context, name string) {
	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		color.Red("error reading schema: %v", err)
		return
	}

	tables := snap.Tables
	if name != "" {
		tables = nil
		for _, t := range snap.Tables {
			if t.Name == name {
				tables = []datasource.Table{t}
				break
			}
		}
		if tables == nil {
			color.Red("unknown table %s", name)
			return
		}
	}

	for _, t := range tables {
		color.Cyan("Table: %s", t.Name)

		primary := make(map[string]bool, len(t.PrimaryKey))
		for _, col := range t.PrimaryKey {
			primary[col] = true
		}

		table := newTable([]string{"COLUMN", "TYPE", "NULLABLE", "DEFAULT", "KEY"})
		for _, col := range t.Columns {
			nullable := "NO"
			if col.Nullable {
				nullable = "YES"
			}
			key := ""
			if primary[col.Name] {
				key = "PK"
			}
			table.Append([]string{col.Name, col.Type, nullable, col.Default, key})
		}
		table.Render()

		for _, fk := range t.ForeignKeys {
			fmt.Printf("  fk: %s -> %s(%s)\n", fk.Column, fk.RefTable, fk.RefColumn)
		}
		fmt.Println()
	}
}

func (c *console) showSample(ctx context.Context, name string) {
	rs, err := c.source.SampleRows(ctx, name, 5)
	if err != nil {
		color.Red("error sampling %s: %v", name, err)
		return
	}
	renderResult(core.ToResultPayload(rs))
}

func (c *console) showHistory(ctx context.Context) {
	records, err := database.GetQueryHistory(ctx, c.db, c.sessionId)
	if err != nil {
		color.Red("error loading history: %v", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("No questions asked yet")
		return
	}

	table := newTable([]string{"TIME", "STATUS", "ROWS", "QUESTION"})
	for _, r := range records {
		table.Append([]string{
			r.CreationTime.Local().Format("15:04:05"),
			r.Status,
			fmt.Sprintf("%d", r.RowCount),
			r.Question,
		})
	}
	table.Render()
}

func renderResult(result *api.ResultPayload) {
	if result.RowCount == 0 {
		fmt.Println("No results found")
		return
	}

	headers := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		headers[i] = col.Name
	}

	table := newTable(headers)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		table.Append(cells)
	}
	table.Render()
}

func renderSummaries(summaries []api.ColumnSummary) {
	if len(summaries) == 0 {
		return
	}

	table := newTable([]string{"COLUMN", "COUNT", "MIN", "MAX", "MEAN", "SUM"})
	for _, s := range summaries {
		table.Append([]string{
			s.Column,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.2f", s.Min),
			fmt.Sprintf("%.2f", s.Max),
			fmt.Sprintf("%.2f", s.Mean),
			fmt.Sprintf("%.2f", s.Sum),
		})
	}
	table.Render()
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}
