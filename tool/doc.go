/*
Package tool defines the tools agents can invoke during a run.

# Design Decisions

  - Schema Generation: JSON schemas are derived from the declared parameter
    annotations, so the model sees exactly the signature the program wrote
  - Raw Arguments: executors receive the model's argument object as raw JSON
    and decode it themselves, keeping validation close to the declaration
  - Registry: definitions live in a concurrency-safe registry shared between
    the evaluator, which registers tools, and agent runs, which resolve them

# Key Concepts

 1. Tool Definition
    A tool is its name, a description shown to the model, the parameter
    schema, and an ExecuteFunc that performs the work.

 2. Builtin Tools
    read_file, write_file, web_fetch, and json_parse are available to every
    program without a declaration; RegisterBuiltins installs them.

 3. User Tools
    Tool declarations in a program are wrapped into definitions by the
    evaluator, which closes over the declaration's lexical scope.

# Usage

	reg := tool.NewRegistry()
	tool.RegisterBuiltins(reg)

	def, ok := reg.Get("web_fetch")
	if ok {
		out, err := def.Execute(ctx, []byte(`{"url":"https://example.com"}`))
		...
	}
*/
package tool
