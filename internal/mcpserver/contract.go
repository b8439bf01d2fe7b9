package mcpserver

// ProjectContract describes the on-disk project layout that tools editing
// project files directly must respect.
const ProjectContract = `# Atelier Project Contract

An Atelier project is a directory of canonical JSON documents.

## Layout

` + "```" + `text
project.json        identity, schemaVersion, timestamps, seed
site.json           title, navigation, SEO defaults
theme.json          design tokens (string -> string)
blocks.lock.json    pinned block versions
pages/<id>.json     one page manifest per file
content/<id>.json   one content record per file
assets/             binary assets
blocks/<folder>/block.manifest.json   workspace blocks
exports/migrations.log                one JSON record per migration
backups/<stamp>-pre-migration/        copies taken before migrating
` + "```" + `

## Rules

1. **Canonical JSON.** Object keys sorted, two-space indent, no HTML escaping,
   trailing newline. Rewriting an unchanged document must produce identical bytes.
2. **File names** under ` + "`" + `pages/` + "`" + ` and ` + "`" + `content/` + "`" + ` are the document id with every
   character outside ` + "`" + `A-Za-z0-9_-` + "`" + ` replaced by ` + "`" + `-` + "`" + `.
3. **Routes** start with ` + "`" + `/` + "`" + `. Block visibility is ` + "`" + `visible` + "`" + ` or ` + "`" + `hidden` + "`" + `.
4. **Instance ids** are optional; missing ones are derived from page id, block id,
   position and the project seed. Once written they are authoritative.
5. **Content references** map a slot name to a content record id. A reference to a
   missing record is allowed and resolves to null.
6. **Block dependencies** must be exact versions (no ` + "`" + `^` + "`" + ` or ` + "`" + `~` + "`" + `), and every block
   using a package must agree on its version.
7. **Never edit ` + "`" + `schemaVersion` + "`" + ` by hand.** Use the ` + "`" + `migrate_project` + "`" + ` tool.

## Example block manifest

` + "```" + `json
{
  "blockId": "hero.split.v1",
  "category": "hero",
  "dependencies": {
    "clsx": "2.1.0"
  },
  "export": {
    "astroTemplate": "blocks/hero-split/HeroSplit.astro"
  },
  "name": "Split hero",
  "runtime": {
    "entry": "blocks/hero-split/index.js"
  },
  "version": "1.0.0"
}
` + "```" + `
`
