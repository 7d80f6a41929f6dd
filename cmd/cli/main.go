// Command cli 是本地版的作品集生成器：草稿保存在 bbolt 文件中，可导入 YAML/JSON、
// 交互式填写、导出独立 HTML 或打印为 PDF。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"folioBuilder/internal/builder"
	"folioBuilder/internal/draftstore"
	"folioBuilder/internal/pdf"
	"folioBuilder/internal/portfolio"
	"folioBuilder/internal/render"
)

// localWorkspace 只用于会话表；存储键固定为裸键。
const localWorkspace = "local"

type options struct {
	dataPath    string
	inPath      string
	interactive bool
	outPath     string
	pdfPath     string
	reset       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dataPath, "data", "", "草稿数据文件（可选，默认读 FOLIO_DATA，再退回 ~/.folio/drafts.db）")
	flag.StringVar(&opts.inPath, "in", "", "导入草稿文件（.yaml/.yml/.json），覆盖当前表单")
	flag.BoolVar(&opts.interactive, "interactive", false, "逐项提示填写表单")
	flag.StringVar(&opts.outPath, "out", "", "导出独立 HTML；传目录时按姓名生成文件名")
	flag.StringVar(&opts.pdfPath, "pdf", "", "打印为 PDF（需要本机 Chromium）")
	flag.BoolVar(&opts.reset, "reset", false, "清除已保存的草稿后再继续")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, opts, logger)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// run 执行一次命令行操作。所有错误都在这里返回，保证 bbolt 文件在退出前关闭。
func run(ctx context.Context, opts options, logger *slog.Logger) error {
	path, err := resolveDataPath(opts.dataPath)
	if err != nil {
		return fmt.Errorf("resolve data path: %w", err)
	}
	store, err := draftstore.OpenBoltStore(path)
	if err != nil {
		return fmt.Errorf("open draft store: %w", err)
	}
	defer store.Close()

	svc := builder.NewService(
		portfolio.NewPersister(store, portfolio.WithLogger(logger)),
		builder.WithLogger(logger),
		builder.WithKeyFunc(func(string) string { return portfolio.StorageKey }),
	)

	if opts.reset {
		if _, err := svc.Reset(ctx, localWorkspace); err != nil {
			return fmt.Errorf("reset draft: %w", err)
		}
		fmt.Println("已清除保存的草稿")
	}

	if opts.inPath != "" {
		draft, err := readDraftFile(opts.inPath)
		if err != nil {
			return fmt.Errorf("import draft: %w", err)
		}
		if _, err := svc.Mutate(ctx, localWorkspace, func(f *portfolio.FormState) error {
			f.ReplaceWithDraft(draft)
			return nil
		}); err != nil {
			return fmt.Errorf("apply draft: %w", err)
		}
		fmt.Printf("已导入 %s\n", opts.inPath)
	}

	if opts.interactive {
		if err := runInteractive(ctx, svc, surveyAsker{}); err != nil {
			if errors.Is(err, errInterrupted) {
				fmt.Println("已取消，已填写的内容均已保存")
				return nil
			}
			return fmt.Errorf("interactive: %w", err)
		}
	}

	if opts.outPath == "" && opts.pdfPath == "" {
		if !opts.reset && opts.inPath == "" && !opts.interactive {
			flag.Usage()
		}
		return nil
	}

	doc, draft, err := svc.Document(ctx, localWorkspace)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	if opts.outPath != "" {
		target := outputFile(opts.outPath, render.DownloadFilename(draft.Name))
		if err := os.WriteFile(target, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
		fmt.Printf("已导出 %s\n", target)
	}

	if opts.pdfPath != "" {
		name := strings.TrimSuffix(render.DownloadFilename(draft.Name), ".html") + ".pdf"
		target := outputFile(opts.pdfPath, name)
		data, err := pdf.GeneratePDFFromHTML(ctx, doc)
		if err != nil {
			return fmt.Errorf("print pdf: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Printf("已导出 %s\n", target)
	}
	return nil
}

func resolveDataPath(flagValue string) (string, error) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(os.Getenv("FOLIO_DATA")); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".folio", "drafts.db"), nil
}

// readDraftFile 按扩展名选择解码方式，两种格式都经过同一份 schema 校验。
func readDraftFile(path string) (portfolio.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return portfolio.Draft{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return portfolio.DecodeDraftYAML(data)
	case ".json":
		return portfolio.DecodeDraftJSON(data)
	default:
		return portfolio.Draft{}, fmt.Errorf("unsupported draft format %q", filepath.Ext(path))
	}
}

// outputFile 在 target 是已有目录时拼接默认文件名。
func outputFile(target, defaultName string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, defaultName)
	}
	return target
}
