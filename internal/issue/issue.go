// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	AssemblyFailedId
	PackagerInvocationFailedId
	NoArtifactProducedId
	AmbiguousArtifactId
	ArtifactMissingId
	VerificationCheckFailedId
	ConfigLoadFailedId
)

type (
	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // lookup key
		mdMsg    MarkdownMsg // rendered with glamour
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the entry for the given glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No usable package.json

extpack could not read the extension descriptor, or the file is not valid JSON
matching the expected shape.

## Things you can try:
- Run extpack from the extension's root directory, or pass it explicitly:
~~~
$ extpack package --project ./extension
~~~
- Check that ` + "`name`" + ` and ` + "`version`" + ` are set and that version looks like ` + "`1.2.3`" + `.
- Validate the JSON syntax with your editor or ` + "`jq . package.json`" + `.`,
		docLinks: []HttpLink{"https://code.visualstudio.com/api/references/extension-manifest"},
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# package.json breaks a manifest rule

The descriptor parsed, but a rule that JSON cannot express failed. The most
common cause is the same command id listed twice under ` + "`contributes.commands`" + `.

## Things you can try:
- Give every contributed command a unique ` + "`command`" + ` id.`,
	}

	assemblyFailedIssue = &Issue{
		id: AssemblyFailedId,
		mdMsg: `
# Could not assemble the staging directory

A filesystem operation failed while writing the minimal descriptor or copying
assets into the staging directory. The staging directory has been removed.

## Things you can try:
- Check permissions on the project directory.
- If an asset is marked ` + "`required: true`" + ` in extpack.cue, make sure it exists
  (for example run your build first so that ` + "`dist/`" + ` is present).`,
	}

	packagerInvocationFailedIssue = &Issue{
		id: PackagerInvocationFailedId,
		mdMsg: `
# The packager exited with an error

The external packaging command returned a non-zero exit status. Its own output
is printed above this message.

## Things you can try:
- Run the packager by hand inside a copy of the staging directory.
- Change the command in extpack.cue:
~~~cue
packager: command: "npx @vscode/vsce package --no-dependencies"
~~~
- Use the built-in packager for offline builds:
~~~cue
packager: builtin: true
~~~`,
		docLinks: []HttpLink{"https://code.visualstudio.com/api/working-with-extensions/publishing-extension"},
	}

	noArtifactProducedIssue = &Issue{
		id: NoArtifactProducedId,
		mdMsg: `
# The packager produced no archive

The packager exited successfully but no file with the expected archive
extension appeared in the staging directory.

## Things you can try:
- Check ` + "`archive_extension`" + ` in extpack.cue matches what the packager writes.
- Make sure the packager writes into its working directory and not elsewhere.`,
	}

	ambiguousArtifactIssue = &Issue{
		id: AmbiguousArtifactId,
		mdMsg: `
# The packager produced more than one archive

extpack refuses to guess which archive to publish.

## Things you can try:
- Configure the packager to emit a single archive.`,
	}

	artifactMissingIssue = &Issue{
		id: ArtifactMissingId,
		mdMsg: `
# Published archive is missing

The packaging run reported success but the archive is not at the expected
output path.

## Things you can try:
- Check ` + "`output_dir`" + ` in extpack.cue.
- Make sure nothing else removes files from the output directory during the run.`,
	}

	verificationCheckFailedIssue = &Issue{
		id: VerificationCheckFailedId,
		mdMsg: `
# Archive verification failed

At least one structural check failed. Every failed check is listed above with
what was expected and what was found.

## Things you can try:
- If the entry point is missing, build the extension before packaging.
- If a command check failed, add the command to ` + "`contributes.commands`" + ` or
  remove it from ` + "`verify.required_commands`" + `.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Could not load extpack.cue

## Things you can try:
- Print the effective configuration:
~~~
$ extpack config show
~~~
- Write a fresh default file:
~~~
$ extpack config init
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():         manifestNotFoundIssue,
		manifestInvalidIssue.Id():          manifestInvalidIssue,
		assemblyFailedIssue.Id():           assemblyFailedIssue,
		packagerInvocationFailedIssue.Id(): packagerInvocationFailedIssue,
		noArtifactProducedIssue.Id():       noArtifactProducedIssue,
		ambiguousArtifactIssue.Id():        ambiguousArtifactIssue,
		artifactMissingIssue.Id():          artifactMissingIssue,
		verificationCheckFailedIssue.Id():  verificationCheckFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
	}
)

func Get(id Id) *Issue {
	return issues[id]
}
