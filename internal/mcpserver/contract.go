package mcpserver

// ItemFormatContract describes the canonical item format that LLM
// consumers should follow when creating collection items.
const ItemFormatContract = `# Ansuz Item Format Contract

Every Markdown item stored in a collection directory follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – used in lists, search, site
date: 2025-01-15 09:30:00 -0500    # generated on create; do not invent
url_link: https://example.com      # extra fields vary per collection
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **YAML front matter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` field is required.** It is the primary display name everywhere.
3. **Do not write front matter yourself when calling ` + "`" + `create_item` + "`" + `.** Pass the
   title, slug, extra fields, and body as separate arguments; the front matter
   block is generated, field order included.
4. **Slugs** are lowercase, hyphen-separated, ASCII only, at most 50
   characters. When omitted, the slug is derived from the title.
5. **Extra fields** are collection-specific; call ` + "`" + `list_collections` + "`" + ` or read
   the configured-collections section of ` + "`" + `get_item_contract` + "`" + ` to learn which
   fields a collection accepts. Required extra fields must be non-empty.
6. **File names** may carry a ` + "`" + `YYYY-MM-DD-` + "`" + ` prefix in date-prefixed
   collections; the slug excludes that prefix.
7. **Encoding** is UTF-8 with a trailing newline.
`
