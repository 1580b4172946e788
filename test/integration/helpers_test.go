//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/state"
	"github.com/refswitch/refswitch/internal/switcher"
	"github.com/refswitch/refswitch/internal/workspace"
)

// testEnv holds paths of a synthetic solution on disk.
type testEnv struct {
	HomeDir  string // REFSWITCH_HOME
	Root     string // solution directory
	Solution string
}

// setupTestEnv creates isolated temp directories and sets environment
// variables so no user configuration leaks into the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir: t.TempDir(),
		Root:    t.TempDir(),
	}
	env.Solution = filepath.Join(env.Root, "Shop.sln")
	t.Setenv("REFSWITCH_HOME", env.HomeDir)
	return env
}

const (
	csharpLegacy = "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}"
	csharpSDK    = "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"
	folderType   = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"
)

type slnEntry struct {
	Type, Name, Path, GUID, Parent string
}

var shopEntries = []slnEntry{
	{folderType, "src", "src", "{A0000000-0000-0000-0000-000000000001}", ""},
	{csharpLegacy, "App", `src\App\App.csproj`, "{A0000000-0000-0000-0000-000000000002}", "{A0000000-0000-0000-0000-000000000001}"},
	{csharpSDK, "Web", `src\Web\Web.csproj`, "{A0000000-0000-0000-0000-000000000003}", "{A0000000-0000-0000-0000-000000000001}"},
	{folderType, "libs", "libs", "{A0000000-0000-0000-0000-000000000004}", ""},
	{csharpSDK, "Core", `libs\Core\Core.csproj`, "{A0000000-0000-0000-0000-000000000005}", "{A0000000-0000-0000-0000-000000000004}"},
	{csharpLegacy, "Lib", `libs\Lib\Lib.csproj`, "{A0000000-0000-0000-0000-000000000006}", "{A0000000-0000-0000-0000-000000000004}"},
	{csharpSDK, "Broken", `tools\Broken\Broken.csproj`, "{A0000000-0000-0000-0000-000000000007}", ""},
}

// writeSolution writes a .sln listing entries, nested by Parent.
func writeSolution(t *testing.T, path string, entries []slnEntry) {
	t.Helper()
	var b strings.Builder
	b.WriteString("\ufeff\r\nMicrosoft Visual Studio Solution File, Format Version 12.00\r\n")
	for _, e := range entries {
		b.WriteString(`Project("` + e.Type + `") = "` + e.Name + `", "` + e.Path + `", "` + e.GUID + "\"\r\nEndProject\r\n")
	}
	b.WriteString("Global\r\n\tGlobalSection(NestedProjects) = preSolution\r\n")
	for _, e := range entries {
		if e.Parent != "" {
			b.WriteString("\t\t" + e.GUID + " = " + e.Parent + "\r\n")
		}
	}
	b.WriteString("\tEndGlobalSection\r\nEndGlobal\r\n")
	writeFile(t, path, b.String())
}

// setupShop writes a solution where App, Web and Core consume the build
// output of Core and Lib through assembly references.
func setupShop(t *testing.T, env *testEnv) {
	t.Helper()
	writeSolution(t, env.Solution, shopEntries)

	writeFile(t, filepath.Join(env.Root, `src/App/App.csproj`), `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <AssemblyName>App</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="System" />
    <Reference Include="Core">
      <HintPath>..\..\libs\Core\bin\Debug\Core.dll</HintPath>
    </Reference>
    <Reference Include="Lib, Version=2.1.0.0, Culture=neutral, processorArchitecture=MSIL">
      <HintPath>..\..\libs\Lib\bin\Debug\Lib.dll</HintPath>
      <Private>True</Private>
    </Reference>
  </ItemGroup>
  <ItemGroup>
    <Compile Include="Program.cs" />
  </ItemGroup>
</Project>
`)
	writeFile(t, filepath.Join(env.Root, `src/Web/Web.csproj`), `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="Lib" HintPath="..\..\libs\Lib\bin\Debug\Lib.dll" />
  </ItemGroup>
</Project>
`)
	writeFile(t, filepath.Join(env.Root, `libs/Core/Core.csproj`), `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <AssemblyName>$(MSBuildProjectName)</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="Lib">
      <HintPath>..\Lib\bin\Debug\Lib.dll</HintPath>
    </Reference>
  </ItemGroup>
</Project>
`)
	writeFile(t, filepath.Join(env.Root, `libs/Lib/Lib.csproj`), `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <OutputType>Library</OutputType>
    <AssemblyName>Lib</AssemblyName>
  </PropertyGroup>
</Project>
`)
	writeFile(t, filepath.Join(env.Root, `tools/Broken/Broken.csproj`), `<Project Sdk=></Project>`)

	writeFile(t, coreDLL(env), "core")
	writeFile(t, libDLL(env), "lib")
}

func coreDLL(env *testEnv) string {
	return filepath.Join(env.Root, "libs", "Core", "bin", "Debug", "Core.dll")
}

func libDLL(env *testEnv) string {
	return filepath.Join(env.Root, "libs", "Lib", "bin", "Debug", "Lib.dll")
}

func projectFile(env *testEnv, rel string) string {
	return filepath.Join(env.Root, filepath.FromSlash(rel))
}

// newEngine returns an engine over fresh stores, as one CLI invocation has.
func newEngine() *switcher.Engine {
	return switcher.NewEngine(msbuild.NewStore(), state.NewStore(""), nil, nil)
}

func convert(t *testing.T, env *testEnv) *switcher.Result {
	t.Helper()
	sln, err := workspace.Open(env.Solution)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res, err := newEngine().ToProjectReferences(context.Background(), sln)
	if err != nil {
		t.Fatalf("ToProjectReferences: %v", err)
	}
	return res
}

func revert(t *testing.T, env *testEnv, keep bool) *switcher.Result {
	t.Helper()
	sln, err := workspace.Open(env.Solution)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res, err := newEngine().SwitchBackToAssemblyReferences(context.Background(), sln, switcher.RevertOptions{KeepUnresolved: keep})
	if err != nil {
		t.Fatalf("SwitchBackToAssemblyReferences: %v", err)
	}
	return res
}

func loadRecords(t *testing.T, env *testEnv) []state.Record {
	t.Helper()
	set, err := state.NewStore("").Load(env.Solution)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	return set.Records()
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileNotContains fails if the file contains substr.
func assertFileNotContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if strings.Contains(string(data), substr) {
		t.Errorf("file %s unexpectedly contains %q.\nContents:\n%s", path, substr, string(data))
	}
}
