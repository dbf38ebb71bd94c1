// Command crewforge assembles a team of model-backed agents for a task and
// runs their conversation.
package main

func main() {
	Execute()
}
