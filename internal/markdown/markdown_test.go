package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	src := []byte("# CronAI Architecture\n\nCronAI is an **AI agent** that runs\nprompts on a schedule.\n\n## Components\n\n### Scheduler `cron`\n\n#### Deep\n")

	s := New().Inspect(src)
	require.Equal(t, "CronAI Architecture", s.Title)
	require.Equal(t, "CronAI is an AI agent that runs prompts on a schedule.", s.Description)
	require.Equal(t, []Heading{
		{Level: 2, Text: "Components", ID: "components"},
		{Level: 3, Text: "Scheduler cron", ID: "scheduler-cron"},
	}, s.Headings)
}

func TestInspectWithoutHeading(t *testing.T) {
	s := New().Inspect([]byte("> quoted\n\nFirst real paragraph.\n"))
	require.Empty(t, s.Title)
	require.Equal(t, "First real paragraph.", s.Description)
}

func TestRenderRewritesDocLinks(t *testing.T) {
	src := []byte("See [the API](./api.md#endpoints), [logging](../guides/logging.md), [site](https://example.com/x.md) and [missing](nope.md).\n")
	resolve := func(target string) (string, bool) {
		switch target {
		case "./api.md":
			return "/cronai/docs/api", true
		case "../guides/logging.md":
			return "/cronai/docs/logging", true
		}
		return "", false
	}

	res, err := New().Render(src, resolve)
	require.NoError(t, err)
	html := string(res.HTML)
	require.Contains(t, html, `href="/cronai/docs/api#endpoints"`)
	require.Contains(t, html, `href="/cronai/docs/logging"`)
	require.Contains(t, html, `href="https://example.com/x.md"`)
	require.Contains(t, html, `href="nope.md"`)
	require.Equal(t, []string{"nope.md"}, res.BrokenLinks)
}

func TestRenderEscapesRewrittenPermalinks(t *testing.T) {
	src := []byte("Read [C#](./csharp.md#setup) and [why](./why.md).\n")
	resolve := func(target string) (string, bool) {
		switch target {
		case "./csharp.md":
			return "/cronai/docs/c#", true
		case "./why.md":
			return "/cronai/docs/why?", true
		}
		return "", false
	}

	res, err := New().Render(src, resolve)
	require.NoError(t, err)
	html := string(res.HTML)
	require.Contains(t, html, `href="/cronai/docs/c%23#setup"`)
	require.Contains(t, html, `href="/cronai/docs/why%3F"`)
	require.Empty(t, res.BrokenLinks)
}

func TestRenderGFMAndHeadingIDs(t *testing.T) {
	src := []byte("## Model Parameters\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>\n")

	res, err := New().Render(src, nil)
	require.NoError(t, err)
	html := string(res.HTML)
	require.Contains(t, html, `<h2 id="model-parameters">Model Parameters</h2>`)
	require.Contains(t, html, "<table>")
	require.False(t, strings.Contains(html, "<script>"))
	require.Empty(t, res.BrokenLinks)
}

func TestRenderIsDeterministic(t *testing.T) {
	src := []byte("# Title\n\n## A\n\n## A\n\ntext [x](a.md)\n")
	r := New()
	resolve := func(string) (string, bool) { return "/a", true }
	first, err := r.Render(src, resolve)
	require.NoError(t, err)
	second, err := r.Render(src, resolve)
	require.NoError(t, err)
	require.Equal(t, first.HTML, second.HTML)
}

func TestSplitDocLink(t *testing.T) {
	tests := []struct {
		dest     string
		target   string
		fragment string
		ok       bool
	}{
		{dest: "api.md", target: "api.md", ok: true},
		{dest: "./guides/systemd.MD#install", target: "./guides/systemd.MD", fragment: "install", ok: true},
		{dest: "page.mdx", target: "page.mdx", ok: true},
		{dest: "#anchor"},
		{dest: "/docs/api.md"},
		{dest: "https://github.com/rshade/cronai/README.md"},
		{dest: "mailto:someone@example.com"},
		{dest: "image.png"},
		{dest: ""},
	}
	for _, tt := range tests {
		target, fragment, ok := SplitDocLink(tt.dest)
		require.Equal(t, tt.ok, ok, tt.dest)
		require.Equal(t, tt.target, target, tt.dest)
		require.Equal(t, tt.fragment, fragment, tt.dest)
	}
}
