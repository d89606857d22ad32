package config

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

const exampleConfig = `# docsite configuration
title: CronAI
tagline: AI agent for scheduled prompt execution
url: https://rshade.github.io
base_url: /cronai/
trailing_slash: false

docs:
  path: docs
  route_base_path: docs
  edit_url: https://github.com/rshade/cronai/tree/main/docs/

links:
  on_broken_links: warn
  on_broken_markdown_links: warn
  on_broken_anchors: warn

sidebars:
  tutorialSidebar:
    # List doc ids in categories once the docs exist, for example:
    # - type: category
    #   label: Guides
    #   items: [systemd, prompt-management, model-parameters]
    - type: autogenerated
      dir: .

home:
  features:
    - title: Schedule AI Prompts
      description: Run prompts against AI models on a cron schedule.
    - title: Multiple Model Support
      description: Use OpenAI, Claude or Gemini with per-task parameters.
    - title: Flexible Output Processing
      description: Send responses to Slack, email, webhooks or files.

navbar:
  items:
    - label: Documentation
      to: /docs
    - label: GitHub
      href: https://github.com/rshade/cronai
      position: right

footer:
  style: dark
  copyright: Copyright CronAI contributors.

output:
  directory: build
  clean: true

server:
  host: 127.0.0.1
  port: 3000
  live_reload: true

logging:
  level: info
  format: text
`

const exampleIntro = `---
id: intro
title: Introduction
slug: /
sidebar_position: 1
---

# Introduction

Welcome to the documentation.
`

// Init writes an example configuration and a starter doc. Existing files are kept unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists").
			WithContext("path", configPath).
			WithContext("hint", "use --force to overwrite").
			Build()
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.FileSystemError("create config directory").WithCause(err).WithContext("path", dir).Build()
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return errors.FileSystemError("write config file").WithCause(err).WithContext("path", configPath).Build()
	}

	docsDir := filepath.Join(dir, "docs")
	intro := filepath.Join(docsDir, "intro.md")
	if _, err := os.Stat(intro); err == nil && !force {
		return nil
	}
	if err := os.MkdirAll(docsDir, 0o750); err != nil {
		return errors.FileSystemError("create docs directory").WithCause(err).WithContext("path", docsDir).Build()
	}
	if err := os.WriteFile(intro, []byte(exampleIntro), 0o600); err != nil {
		return errors.FileSystemError("write starter doc").WithCause(err).WithContext("path", intro).Build()
	}
	return nil
}
