// Package command implements the command model of the server: the command
// table, argument validation and dispatch against a storage.Storage.
//
// A decoded request is first turned into a Command by Parse, which checks
// the name and arity against the table and validates integer arguments
// without touching storage. Dispatcher.Dispatch then executes it and
// always produces a Result; failures are Results of kind ResultError that
// carry an Error with a category and the exact reply text.
//
//	cmd, err := command.Parse(frame)
//	if err != nil {
//		return command.ErrorResult(err)
//	}
//	res := dispatcher.Dispatch(ctx, session, cmd)
//	writer.WriteValue(res.Value())
package command
