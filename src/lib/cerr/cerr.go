package cerr

import "fmt"

// F is a shorthand for a bag of context fields.
type F map[string]interface{}

type Context struct {
	ContextFields F
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(cause error) Wrapper {
	return Context{}.Wrap(cause)
}

func Error(message string) ContextualError {
	return Context{}.Error(message)
}

func (c Context) Field(key string, value interface{}) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := F{}
	for k, v := range c.ContextFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return Context{ContextFields: merged}
}

func (c Context) Wrap(cause error) Wrapper {
	return Wrapper{
		context: c,
		cause:   cause,
	}
}

func (c Context) Error(message string) ContextualError {
	return ContextualError{
		Context: c,
		Message: message,
	}
}

type Wrapper struct {
	context Context
	cause   error
}

func (w Wrapper) Error(message string) ContextualError {
	return ContextualError{
		Context: w.context,
		Message: message,
		Cause:   w.cause,
	}
}

var _ error = ContextualError{}
var _ interface{ Unwrap() error } = ContextualError{}

type ContextualError struct {
	Context Context
	Message string
	Cause   error
}

func (c ContextualError) Error() string {
	if c.Cause == nil {
		return c.Message
	}

	return fmt.Sprintf("%s: %s", c.Message, c.Cause.Error())
}

func (c ContextualError) Unwrap() error {
	return c.Cause
}
