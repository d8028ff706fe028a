package conversation

// Canned reply templates. One locale (Japanese), matching the audience of
// the toyutoyu service; raw collaborator errors never reach these strings.
const (
	msgUseOneToOne = "このボットは1対1のトークでご利用ください。"

	msgCancelled = "操作をキャンセルしました。"

	msgPromptEmail = "ログインを開始します。会員登録に使っているメールアドレスを入力してください。\n（「キャンセル」と入力すると中止できます）"

	msgInvalidEmail = "メールアドレスの形式が正しくないようです。もう一度入力してください。"

	msgPromptPassword = "パスワードを入力してください。"

	msgLoginSuccess = "ログインしました。「ポイント」と入力すると残高を確認できます。"

	msgInvalidCredentials = "メールアドレスまたはパスワードが正しくありません。もう一度「ログイン」と入力してやり直してください。"

	msgAuthError = "認証処理でエラーが発生しました。時間をおいてもう一度お試しください。"

	msgLoginRequired = "ポイント残高の確認にはログインが必要です。「ログイン」と入力してログインしてください。"

	msgPointsFailed = "ポイントの取得に失敗しました。時間をおいてもう一度お試しください。"

	msgPointsFormat = "現在のポイント残高は %s ポイントです。"

	msgPasswordHelp = "パスワードの入力はログインの途中でご案内します。チャットに直接パスワードを書き込まないでください。ログインする場合は「ログイン」と入力してください。"

	msgAIBusy = "ただいま応答が混み合っています。時間をおいてもう一度お試しください。"

	msgUsage = "ご利用いただけるコマンド:\n・「ログイン」… 会員ログイン\n・「ポイント」… ポイント残高の確認\n・「キャンセル」… 操作の中止\nよくある質問はキーワードでもお答えします（例:「支払い」「パスワード 再設定」）。"
)
