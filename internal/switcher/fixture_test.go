package switcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/state"
	"github.com/refswitch/refswitch/internal/workspace"
	"github.com/stretchr/testify/require"
)

const sampleSolution = `
Microsoft Visual Studio Solution File, Format Version 12.00
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "App\App.csproj", "{11111111-1111-1111-1111-111111111111}"
EndProject
Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "libs", "libs", "{22222222-2222-2222-2222-222222222222}"
EndProject
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Lib", "Lib\Lib.csproj", "{33333333-3333-3333-3333-333333333333}"
EndProject
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Core", "Core\Core.csproj", "{55555555-5555-5555-5555-555555555555}"
EndProject
Global
	GlobalSection(NestedProjects) = preSolution
		{33333333-3333-3333-3333-333333333333} = {22222222-2222-2222-2222-222222222222}
		{55555555-5555-5555-5555-555555555555} = {22222222-2222-2222-2222-222222222222}
	EndGlobalSection
EndGlobal
`

const appProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <AssemblyName>App</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="System" />
    <Reference Include="Lib, Version=1.0.0.0, Culture=neutral, processorArchitecture=MSIL">
      <HintPath>..\Lib\bin\Lib.dll</HintPath>
    </Reference>
    <Reference Include="Newtonsoft.Json">
      <HintPath>..\packages\Newtonsoft.Json.dll</HintPath>
    </Reference>
  </ItemGroup>
  <ItemGroup>
    <Compile Include="Program.cs" />
  </ItemGroup>
</Project>
`

const libProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <OutputType>Library</OutputType>
    <AssemblyName>Lib</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Compile Include="Class1.cs" />
  </ItemGroup>
</Project>
`

// Core references "lib", which differs from Lib's output name only in case.
const coreProject = `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <Reference Include="lib">
      <HintPath>..\Lib\bin\lib.dll</HintPath>
    </Reference>
  </ItemGroup>
</Project>
`

type testWorkspace struct {
	root string
	sln  string
	app  string
	lib  string
	core string
	dll  string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// newWorkspace writes the sample solution. App holds an assembly reference
// to Lib's build output, which exists on disk.
func newWorkspace(t *testing.T, app string) testWorkspace {
	t.Helper()
	root := t.TempDir()
	ws := testWorkspace{
		root: root,
		sln:  filepath.Join(root, "Sample.sln"),
		app:  filepath.Join(root, "App", "App.csproj"),
		lib:  filepath.Join(root, "Lib", "Lib.csproj"),
		core: filepath.Join(root, "Core", "Core.csproj"),
		dll:  filepath.Join(root, "Lib", "bin", "Lib.dll"),
	}
	writeFile(t, ws.sln, sampleSolution)
	writeFile(t, ws.app, app)
	writeFile(t, ws.lib, libProject)
	writeFile(t, ws.core, coreProject)
	writeFile(t, ws.dll, "not a real assembly")
	return ws
}

func (ws testWorkspace) open(t *testing.T) *workspace.Solution {
	t.Helper()
	sln, err := workspace.Open(ws.sln)
	require.NoError(t, err)
	return sln
}

// recorder is a Notifier that keeps everything it is told.
type recorder struct {
	messages   []string
	severities []Severity
	progress   []string
}

func (r *recorder) ShowMessage(text string, severity Severity) {
	r.messages = append(r.messages, text)
	r.severities = append(r.severities, severity)
}

func (r *recorder) ReportProgress(text string, current, total int) {
	r.progress = append(r.progress, text)
}

// newEngine returns an engine over fresh stores, as a new invocation would.
func newEngine() (*Engine, *recorder) {
	rec := &recorder{}
	return NewEngine(msbuild.NewStore(), state.NewStore(""), rec, nil), rec
}
