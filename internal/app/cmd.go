package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandAnalyze は単一ファイルを解析して結果を出力することを示す。
	CommandAnalyze Command = "analyze"
	// CommandLogin はGoogleクレデンシャルでログインすることを示す。
	CommandLogin Command = "login"
	// CommandLogout は保存済みセッションを破棄することを示す。
	CommandLogout Command = "logout"
	// CommandSetKey はGemini APIキーをバックエンドに保存することを示す。
	CommandSetKey Command = "set-key"
	// CommandProfile はログイン中のユーザープロフィールを表示することを示す。
	CommandProfile Command = "profile"
	// CommandStatus はLLMプロバイダーの稼働状況を表示することを示す。
	CommandStatus Command = "status"
	// CommandWatch はディレクトリ監視モードで起動することを示す。
	CommandWatch Command = "watch"
	// CommandHelp は使い方を表示することを示す。
	CommandHelp Command = "help"
)

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandHelp, nil
	}

	switch args[0] {
	case "analyze":
		return CommandAnalyze, args[1:]
	case "login":
		return CommandLogin, args[1:]
	case "logout":
		return CommandLogout, args[1:]
	case "set-key":
		return CommandSetKey, args[1:]
	case "profile":
		return CommandProfile, args[1:]
	case "status":
		return CommandStatus, args[1:]
	case "watch":
		return CommandWatch, args[1:]
	case "help":
		return CommandHelp, nil
	default:
		return CommandHelp, nil
	}
}
