package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"folioBuilder/internal/builder"
	"folioBuilder/internal/portfolio"
)

var errInterrupted = errors.New("interrupted")

// asker 抽象交互输入，测试中用脚本化的实现替换。
type asker interface {
	Input(message, current string) (string, error)
	Select(message string, options []string, current string) (string, error)
	Confirm(message string) (bool, error)
}

type surveyAsker struct{}

func (surveyAsker) Input(message, current string) (string, error) {
	answer := current
	err := survey.AskOne(&survey.Input{Message: message, Default: current}, &answer)
	return answer, mapSurveyErr(err)
}

func (surveyAsker) Select(message string, options []string, current string) (string, error) {
	answer := current
	err := survey.AskOne(&survey.Select{Message: message, Options: options, Default: current}, &answer)
	return answer, mapSurveyErr(err)
}

func (surveyAsker) Confirm(message string) (bool, error) {
	var answer bool
	err := survey.AskOne(&survey.Confirm{Message: message}, &answer)
	return answer, mapSurveyErr(err)
}

func mapSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errInterrupted
	}
	return err
}

var fieldPrompts = []struct {
	id      string
	message string
}{
	{"name", "Name"},
	{"role", "Role / Title"},
	{"summary", "Short objective"},
	{"email", "Email"},
	{"phone", "Phone"},
	{"location", "Location"},
	{"age", "Age"},
	{"skills", "Skills (comma separated)"},
	{"github", "GitHub URL"},
	{"linkedin", "LinkedIn URL"},
	{"website", "Website URL"},
	{"metaDesc", "Meta description"},
	{"ogImage", "Social preview image URL"},
}

var entryLabels = map[portfolio.ListKind]string{
	portfolio.ListEducation:     "education",
	portfolio.ListCertification: "certification",
	portfolio.ListAchievement:   "achievement",
	portfolio.ListProject:       "project",
}

// runInteractive 每回答一项就提交一次修改，中途退出也不会丢失已填内容。
func runInteractive(ctx context.Context, svc *builder.Service, ask asker) error {
	snap, err := svc.Snapshot(ctx, localWorkspace)
	if err != nil {
		return err
	}

	for _, p := range fieldPrompts {
		value, err := ask.Input(p.message, snap.Form.Value(p.id))
		if err != nil {
			return err
		}
		if value == snap.Form.Value(p.id) {
			continue
		}
		id := p.id
		if snap, err = svc.Mutate(ctx, localWorkspace, func(f *portfolio.FormState) error {
			return f.SetField(id, value)
		}); err != nil {
			return err
		}
	}

	themes := make([]string, 0, len(portfolio.Themes))
	for _, t := range portfolio.Themes {
		themes = append(themes, string(t))
	}
	theme, err := ask.Select("Theme", themes, string(snap.Form.Theme))
	if err != nil {
		return err
	}
	accent := ""
	if portfolio.Theme(theme) == portfolio.ThemeCustom {
		if accent, err = ask.Input("Accent colour (#rrggbb)", snap.Form.CustomAccent); err != nil {
			return err
		}
	}
	if _, err := svc.Mutate(ctx, localWorkspace, func(f *portfolio.FormState) error {
		f.SetTheme(theme, accent)
		return nil
	}); err != nil {
		return err
	}

	for _, kind := range portfolio.ListKinds {
		if err := promptEntries(ctx, svc, ask, kind); err != nil {
			return err
		}
	}
	return nil
}

func promptEntries(ctx context.Context, svc *builder.Service, ask asker, kind portfolio.ListKind) error {
	for {
		more, err := ask.Confirm(fmt.Sprintf("Add a %s entry?", entryLabels[kind]))
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		values := make(map[string]string, len(kind.Fields()))
		for _, field := range kind.Fields() {
			v, err := ask.Input(fmt.Sprintf("%s %s", entryLabels[kind], field), "")
			if err != nil {
				return err
			}
			values[field] = v
		}

		if _, err := svc.Mutate(ctx, localWorkspace, func(f *portfolio.FormState) error {
			entry, err := firstBlankOrNew(f, kind)
			if err != nil {
				return err
			}
			_, err = f.UpdateEntry(kind, entry.ID, values)
			return err
		}); err != nil {
			return err
		}
	}
}

// firstBlankOrNew 优先填充种子生成的空白条目。
func firstBlankOrNew(f *portfolio.FormState, kind portfolio.ListKind) (portfolio.Entry, error) {
	for _, e := range f.Entries(kind) {
		blank := true
		for _, field := range kind.Fields() {
			if e.Value(field) != "" {
				blank = false
				break
			}
		}
		if blank {
			return e, nil
		}
	}
	return f.AddEntry(kind)
}
