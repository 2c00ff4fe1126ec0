package interp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandlang/strand/parser"
	"github.com/strandlang/strand/pkg/stdx"
)

// stubRunner records invocations and replays canned results.
type stubRunner struct {
	result   Value
	err      error
	parallel []BranchResult

	agents    []*AgentHandle
	inputs    []string
	hasInputs []bool
}

func (s *stubRunner) RunAgent(_ context.Context, agent *AgentHandle, input string, hasInput bool) (Value, error) {
	s.agents = append(s.agents, agent)
	s.inputs = append(s.inputs, input)
	s.hasInputs = append(s.hasInputs, hasInput)
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return String("stub response"), nil
	}
	return s.result, nil
}

func (s *stubRunner) RunParallel(_ context.Context, agents []*AgentHandle, _ time.Duration) []BranchResult {
	s.agents = append(s.agents, agents...)
	return s.parallel
}

func run(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	in := stdx.Must1(New(WithStdout(&buf)))
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	return buf.String()
}

func runErr(t *testing.T, src string) *RuntimeError {
	t.Helper()
	in := stdx.Must1(New(WithStdout(&bytes.Buffer{})))
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	err = in.Run(context.Background(), prog)
	require.Error(t, err)
	rerr := &RuntimeError{}
	require.ErrorAs(t, err, &rerr)
	return rerr
}

func TestArithmeticAndPrint(t *testing.T) {
	out := run(t, `
println(1 + 2 * 3)
println(10 / 4)
println(10 % 3)
println(-5 + 2)
println("a", "b")
`)
	assert.Equal(t, "7\n2.5\n1\n-3\na b\n", out)
}

func TestPrintDoesNotAppendNewline(t *testing.T) {
	out := run(t, `
print("a")
print("b", "c")
`)
	assert.Equal(t, "ab c", out)
}

func TestDivisionByZero(t *testing.T) {
	rerr := runErr(t, `let x = 1 / 0`)
	assert.Equal(t, ErrRuntime, rerr.Kind)
}

func TestStringConcatAndInterpolation(t *testing.T) {
	out := run(t, `
let name = "world"
let n = 2
println("hi " + name)
println("got {n + 1} items")
println("n is " + n)
`)
	assert.Equal(t, "hi world\ngot 3 items\nn is 2\n", out)
}

func TestComparisonsAndLogic(t *testing.T) {
	out := run(t, `
println(1 < 2, "b" > "a", 2 <= 2, 3 >= 4)
println(1 == 1, "x" != "y", null == null)
println(true && false, false || true, !false)
`)
	assert.Equal(t, "true true true false\ntrue true true\nfalse true true\n", out)
}

func TestShortCircuitEvaluation(t *testing.T) {
	// the right side would be a runtime error if evaluated
	out := run(t, `
let arr = []
println(false && arr[5])
println(true || arr[5])
`)
	assert.Equal(t, "false\ntrue\n", out)
}

func TestLexicalScopingAndClosures(t *testing.T) {
	out := run(t, `
fn makeCounter() {
	let n = 0
	return () => {
		n = n + 1
		return n
	}
}
let c = makeCounter()
println(c())
println(c())
let c2 = makeCounter()
println(c2())
`)
	assert.Equal(t, "1\n2\n1\n", out)
}

func TestBlockScopeShadowing(t *testing.T) {
	out := run(t, `
let x = 1
if true {
	let x = 2
	println(x)
}
println(x)
`)
	assert.Equal(t, "2\n1\n", out)
}

func TestWhileBreakContinue(t *testing.T) {
	out := run(t, `
let i = 0
let total = 0
while true {
	i = i + 1
	if i > 10 {
		break
	}
	if i % 2 == 0 {
		continue
	}
	total = total + i
}
println(total)
`)
	assert.Equal(t, "25\n", out)
}

func TestForInIteration(t *testing.T) {
	out := run(t, `
for x in [10, 20] {
	println(x)
}
for ch in "héllo".slice(0, 2) {
	println(ch)
}
for entry in { a: 1, b: 2 } {
	println(entry.key, entry.value)
}
`)
	assert.Equal(t, "10\n20\nh\né\na 1\nb 2\n", out)
}

func TestFunctionsAndReturn(t *testing.T) {
	out := run(t, `
fn classify(n: number) -> string {
	if n < 0 {
		return "negative"
	}
	return "non-negative"
}
println(classify(-1))
println(classify(3))
`)
	assert.Equal(t, "negative\nnon-negative\n", out)
}

func TestFunctionArgumentTypeChecking(t *testing.T) {
	rerr := runErr(t, `
fn wantsNumber(n: number) { return n }
wantsNumber("oops")
`)
	assert.Equal(t, ErrType, rerr.Kind)
}

func TestFunctionArity(t *testing.T) {
	rerr := runErr(t, `
fn two(a, b) { return a }
two(1)
`)
	assert.Equal(t, ErrArity, rerr.Kind)
}

func TestArrayBuiltins(t *testing.T) {
	out := run(t, `
let xs = [1, 2, 3]
println(xs.map((x) => x * 2))
println(xs.filter((x) => x > 1).map((x) => x * 2))
println(xs.reduce((acc, x) => acc + x, 10))
println(xs.find((x) => x == 2))
println(xs.find((x) => x > 9))
println(xs.indexOf(3), xs.indexOf(9))
println(xs.contains(2), xs.contains(7))
println(xs.concat([4, 5]))
println(xs.slice(1, 3))
println(xs.slice(-2))
println(xs.join("-"))
println(xs.reverse())
println(xs.length())
`)
	assert.Equal(t, `[2, 4, 6]
[4, 6]
16
2
null
2 -1
true false
[1, 2, 3, 4, 5]
[2, 3]
[2, 3]
1-2-3
[3, 2, 1]
3
`, out)
}

func TestArrayPushDoesNotMutate(t *testing.T) {
	out := run(t, `
let xs = [1]
let ys = xs.push(2)
println(xs)
println(ys)
`)
	assert.Equal(t, "[1]\n[1, 2]\n", out)
}

func TestStringMethods(t *testing.T) {
	out := run(t, `
let s = "  Hello, World  "
println(s.trim())
println(s.trim().toLowerCase())
println(s.trim().toUpperCase())
println("a,b,c".split(","))
println("hello".contains("ell"), "hello".startsWith("he"), "hello".endsWith("lo"))
println("héllo".length())
println("héllo".indexOf("l"))
println("héllo".slice(1, 4))
println("a-b-a".replace("a", "x"))
`)
	assert.Equal(t, `Hello, World
hello, world
HELLO, WORLD
[a, b, c]
true true true
5
2
éll
x-b-x
`, out)
}

func TestObjectMethods(t *testing.T) {
	out := run(t, `
let o = { b: 1, a: 2 }
println(o.keys())
println(o.values())
println(o.has("a"), o.has("z"))
println(o.length())
println(o.missing)
println(o["a"])
`)
	assert.Equal(t, "[b, a]\n[1, 2]\ntrue false\n2\nnull\n2\n", out)
}

func TestIndexing(t *testing.T) {
	out := run(t, `
let xs = [1, 2, 3]
println(xs[0], xs[2])
println("héllo"[1])
`)
	assert.Equal(t, "1 3\né\n", out)

	rerr := runErr(t, `let xs = [1]
let y = xs[5]`)
	assert.Equal(t, ErrRuntime, rerr.Kind)
}

func TestConversionBuiltins(t *testing.T) {
	out := run(t, `
println(len("héllo"), len([1, 2]), len({ a: 1 }))
println(str(12) + "!")
println(num("3.5") + 1)
println(num(true), num(false))
`)
	assert.Equal(t, "5 2 1\n12!\n4.5\n1 0\n", out)

	rerr := runErr(t, `num("not a number")`)
	assert.Equal(t, ErrType, rerr.Kind)
}

func TestTryCatchBindsErrorObject(t *testing.T) {
	out := run(t, `
try {
	let x = 1 / 0
	println("unreached")
} catch err {
	println(err.kind)
	println(err.message)
}
println("after")
`)
	assert.Equal(t, "RuntimeError\ndivision by zero\nafter\n", out)
}

func TestTryCatchUndefinedName(t *testing.T) {
	out := run(t, `
try {
	nope()
} catch err {
	println(err.kind)
}
`)
	assert.Equal(t, "UndefinedName\n", out)
}

func TestMatchLiteralsAndWildcard(t *testing.T) {
	out := run(t, `
fn label(v) {
	return match v {
		0 => "zero"
		"hi" => "greeting"
		true => "yes"
		null => "nothing"
		_ => "other"
	}
}
println(label(0))
println(label("hi"))
println(label(true))
println(label(null))
println(label([1]))
`)
	assert.Equal(t, "zero\ngreeting\nyes\nnothing\nother\n", out)
}

func TestMatchEnumPayloadBindings(t *testing.T) {
	out := run(t, `
enum Shape {
	Circle(radius: number)
	Rect(number, number)
	Dot
}
fn area(s) {
	return match s {
		Shape.Circle(r) => r * r * 3
		Shape.Rect(w, h) => w * h
		Shape.Dot => 0
	}
}
println(area(Shape.Circle(2)))
println(area(Shape.Rect(3, 4)))
println(area(Shape.Dot))
`)
	assert.Equal(t, "12\n12\n0\n", out)
}

func TestMatchNoArmRaisesCatchable(t *testing.T) {
	out := run(t, `
try {
	let v = match 9 {
		1 => "one"
	}
} catch err {
	println(err.kind)
}
`)
	assert.Equal(t, "NoMatchingArm\n", out)
}

func TestEnumVariantEquality(t *testing.T) {
	out := run(t, `
enum Status { Active, Done }
let a = Status.Active
println(a == Status.Active)
println(a == Status.Done)
`)
	assert.Equal(t, "true\nfalse\n", out)
}

func TestEnumConstructorArity(t *testing.T) {
	rerr := runErr(t, `
enum E { Pair(number, number) }
let v = E.Pair(1)
`)
	assert.Equal(t, ErrArity, rerr.Kind)
	assert.Contains(t, rerr.Message, "E.Pair expects 2 arguments, got 1")
}

func TestAssignToUndefined(t *testing.T) {
	rerr := runErr(t, `x = 5`)
	assert.Equal(t, ErrUndefined, rerr.Kind)
}

func TestAgentRunThroughRunner(t *testing.T) {
	runner := &stubRunner{result: String("the answer")}
	var buf bytes.Buffer
	in := stdx.Must1(New(WithStdout(&buf), WithRunner(runner)))
	prog, err := parser.Parse(`
agent helper {
	systemPrompt: "Be helpful."
	userPrompt: "default question"
}
let a = helper.run("explicit question")
println(a)
let b = helper.run()
println(b)
let c = helper("called directly")
println(c)
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))

	assert.Equal(t, "the answer\nthe answer\nthe answer\n", buf.String())
	require.Len(t, runner.inputs, 3)
	assert.Equal(t, "explicit question", runner.inputs[0])
	assert.True(t, runner.hasInputs[0])
	assert.False(t, runner.hasInputs[1])
	assert.Equal(t, "called directly", runner.inputs[2])

	handle := runner.agents[0]
	assert.Equal(t, "helper", handle.Name)
	assert.Equal(t, "Be helpful.", handle.SystemPrompt)
	assert.Equal(t, "default question", handle.UserPrompt)
	assert.Equal(t, DefaultMaxSteps, handle.MaxSteps)
	assert.Equal(t, DefaultOutputRetries, handle.OutputRetries)
}

func TestAgentUnknownProviderFailsAtDeclaration(t *testing.T) {
	runner := &stubRunner{}
	in := stdx.Must1(New(WithStdout(&bytes.Buffer{}), WithRunner(runner)))
	prog, err := parser.Parse(`
agent bad {
	systemPrompt: "x"
	provider: "gemini"
}
`)
	require.NoError(t, err)
	err = in.Run(context.Background(), prog)
	require.Error(t, err)
	rerr := &RuntimeError{}
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrConfig, rerr.Kind)
	assert.Contains(t, rerr.Message, "unknown provider 'gemini'")
	assert.Contains(t, rerr.Message, "supported providers:")
	assert.Empty(t, runner.agents)
}

func TestAgentRunWithoutRunner(t *testing.T) {
	rerr := runErr(t, `
agent a { systemPrompt: "x" }
a.run()
`)
	assert.Equal(t, ErrConfig, rerr.Kind)
	assert.Contains(t, rerr.Message, "no agent runner configured")
}

func TestAgentOutputStructResolution(t *testing.T) {
	runner := &stubRunner{result: String("ok")}
	in := stdx.Must1(New(WithStdout(&bytes.Buffer{}), WithRunner(runner)))
	prog, err := parser.Parse(`
struct Verdict {
	score: number
}
agent judge {
	systemPrompt: "Judge."
	output: Verdict
}
judge.run()
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	require.Len(t, runner.agents, 1)
	require.Len(t, runner.agents[0].OutputFields, 1)
	assert.Equal(t, "score", runner.agents[0].OutputFields[0].Name)
}

func TestAgentUnknownOutputStruct(t *testing.T) {
	rerr := runErr(t, `
agent judge {
	systemPrompt: "Judge."
	output: Missing
}
`)
	assert.Equal(t, ErrConfig, rerr.Kind)
	assert.Contains(t, rerr.Message, "unknown output struct 'Missing'")
}

func TestParallelPartialFailureIsInBand(t *testing.T) {
	runner := &stubRunner{parallel: []BranchResult{
		{Value: String("first")},
		{Err: &RuntimeError{Kind: ErrRuntime, Message: "branch blew up"}},
		{Value: String("third")},
	}}
	var buf bytes.Buffer
	in := stdx.Must1(New(WithStdout(&buf), WithRunner(runner)))
	prog, err := parser.Parse(`
agent a { systemPrompt: "a" }
agent b { systemPrompt: "b" }
agent c { systemPrompt: "c" }
parallel trio {
	agents: [a, b, c]
	timeout: 1000
}
let results = trio.run()
println(results[0])
println(results[1].error, results[1].agent, results[1].message)
println(results[2])
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	assert.Equal(t, "first\ntrue b branch blew up\nthird\n", buf.String())
}

func TestParallelAllFailedRaises(t *testing.T) {
	runner := &stubRunner{parallel: []BranchResult{
		{Err: &RuntimeError{Kind: ErrRuntime, Message: "boom"}},
		{Err: &RuntimeError{Kind: ErrRuntime, Message: "bang"}},
	}}
	var buf bytes.Buffer
	in := stdx.Must1(New(WithStdout(&buf), WithRunner(runner)))
	prog, err := parser.Parse(`
agent a { systemPrompt: "a" }
agent b { systemPrompt: "b" }
parallel duo { agents: [a, b] }
try {
	duo.run()
} catch err {
	println(err.kind)
	println(err.results[0].message)
}
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	assert.Equal(t, "RuntimeError\nboom\n", buf.String())
}

func TestParallelAgentsResolvedAtRunTime(t *testing.T) {
	runner := &stubRunner{parallel: []BranchResult{{Value: String("ok")}}}
	in := stdx.Must1(New(WithStdout(&bytes.Buffer{}), WithRunner(runner)))
	// the parallel block is declared before the agent it references
	prog, err := parser.Parse(`
parallel later { agents: [a] }
agent a { systemPrompt: "late binding" }
later.run()
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	require.Len(t, runner.agents, 1)
	assert.Equal(t, "late binding", runner.agents[0].SystemPrompt)
}

func TestToolDeclarationRegistersDefinition(t *testing.T) {
	var buf bytes.Buffer
	in := stdx.Must1(New(WithStdout(&buf)))
	prog, err := parser.Parse(`
tool shout(text: string) -> string {
	return text.toUpperCase()
}
println(shout("hey"))
`)
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background(), prog))
	assert.Equal(t, "HEY\n", buf.String())

	def, ok := in.Tools().Get("shout")
	require.True(t, ok)
	assert.Equal(t, "User-defined tool shout", def.Description)

	result, err := def.Execute(context.Background(), []byte(`{"text":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "ABC", result)
}

func TestReturnInsideLoopUnwinds(t *testing.T) {
	out := run(t, `
fn firstEven(xs) {
	for x in xs {
		if x % 2 == 0 {
			return x
		}
	}
	return null
}
println(firstEven([1, 3, 4, 5]))
println(firstEven([1, 3]))
`)
	assert.Equal(t, "4\nnull\n", out)
}

func TestCancelledContextStopsRun(t *testing.T) {
	in := stdx.Must1(New(WithStdout(&bytes.Buffer{})))
	prog, err := parser.Parse(`
let i = 0
while true {
	i = i + 1
}
`)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = in.Run(ctx, prog)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKnowledgeBaseMethods(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"),
		[]byte("# Shipping\nOrders ship within two business days."), 0o644))

	out := run(t, `
let notes = KnowledgeBase("`+dir+`")
println(notes.isIndexed())
let count = notes.index()
println(count)
println(notes.isIndexed())
let hits = notes.search("business days shipping")
println(hits.length())
println(hits[0].source)
`)
	assert.Equal(t, "false\n1\ntrue\n1\nnotes.md\n", out)
}

func TestKnowledgeBaseSearchBeforeIndex(t *testing.T) {
	dir := t.TempDir()
	rerr := runErr(t, `
let notes = KnowledgeBase("`+dir+`")
notes.search("anything")
`)
	assert.Equal(t, ErrRuntime, rerr.Kind)
	assert.Contains(t, rerr.Message, "not indexed")
}
