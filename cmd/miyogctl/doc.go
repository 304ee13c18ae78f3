// Command miyogctl is a command-line client for the miyog API. It mints
// development tokens, lists projects and tasks, follows renders until they
// finish, and validates or submits editor timelines written as YAML or JSON.
package main
